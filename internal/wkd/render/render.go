// Package render prints lookup reports for the command line.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"wkd-tester/internal/wkd/domain"
)

// Format selects the output of Write.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Printer writes reports in one format.
type Printer struct {
	format Format

	title   *color.Color
	ok      *color.Color
	warning *color.Color
	failure *color.Color
	faint   *color.Color
}

// New creates a Printer. Colours are only used for text output and only when
// colour is true.
func New(format Format, colour bool) *Printer {
	p := &Printer{
		format:  format,
		title:   color.New(color.Bold),
		ok:      color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed),
		faint:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.title, p.ok, p.warning, p.failure, p.faint} {
		if colour {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Write prints report to w.
func (p *Printer) Write(w io.Writer, report *domain.Report) error {
	if p.format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	var b strings.Builder
	p.text(&b, report)
	_, err := io.WriteString(w, b.String())
	return err
}

func (p *Printer) text(b *strings.Builder, report *domain.Report) {
	fmt.Fprintf(b, "%s %s\n", p.title.Sprint("WKD lookup for"), report.UserID)
	for _, m := range []domain.Method{domain.MethodAdvanced, domain.MethodDirect} {
		fmt.Fprintf(b, "%s method URI: %s\n", m.Title(), report.Method(m).URI)
	}
	for _, m := range []domain.Method{domain.MethodAdvanced, domain.MethodDirect} {
		b.WriteString("\n")
		p.method(b, m, report.Method(m))
	}
}

func (p *Printer) method(b *strings.Builder, m domain.Method, res domain.MethodResult) {
	name := m.Title()

	switch {
	case res.Key == nil && len(res.Passed) == 0:
		fmt.Fprintf(b, "%s\n", p.failure.Sprintf("%s method fetch failed with following errors:", name))
		p.diagnostics(b, res.Errors, p.failure)
		return
	case len(res.Warnings) > 0:
		fmt.Fprintf(b, "%s\n", p.warning.Sprintf("%s method fetch was successful with warnings:", name))
		p.diagnostics(b, res.Warnings, p.warning)
	}

	if len(res.Passed) > 0 {
		fmt.Fprintf(b, "%s tests:\n", name)
		for _, check := range res.Passed {
			fmt.Fprintf(b, " - %s %s\n", check, p.ok.Sprint("Passed"))
		}
	}

	if res.Key == nil {
		fmt.Fprintf(b, "%s\n", p.failure.Sprintf("%s method key loading failed with following errors:", name))
		p.diagnostics(b, res.Errors, p.failure)
		return
	}

	key := res.Key
	prefix := name + " method key loading succeed with"
	fmt.Fprintf(b, "%s fingerprint: %s\n", prefix, p.ok.Sprint(key.Fingerprint))
	fmt.Fprintf(b, "%s revocation status: %s\n", prefix, p.revocation(key.RevocationStatus))
	if d := key.Details; d != nil {
		fmt.Fprintf(b, "%s expiry status: %s\n", prefix, d.Expiry)
		fmt.Fprintf(b, "%s algorithm: %s\n", prefix, d.Algorithm)
		fmt.Fprintf(b, "%s randomart:\n%s\n", prefix, d.Randomart)
	}
}

func (p *Printer) diagnostics(b *strings.Builder, diags []domain.Diagnostic, c *color.Color) {
	for _, d := range diags {
		fmt.Fprintf(b, "  %s %s\n", c.Sprintf("[%s]", d.Code), d.Message)
		for _, cause := range d.Causes {
			fmt.Fprintf(b, "    %s %s\n", p.faint.Sprint("caused by:"), cause)
		}
	}
}

func (p *Printer) revocation(status domain.RevocationStatus) string {
	switch status {
	case domain.RevocationNotRevoked:
		return p.ok.Sprint(status)
	case domain.RevocationRevoked:
		return p.failure.Sprint(status)
	default:
		return p.warning.Sprint(status)
	}
}
