// Package handler exposes WKD lookups over HTTP: a JSON API and an HTML form.
package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/xml"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/go-chi/chi/v5"

	"wkd-tester/internal/wkd/domain"
	dErrors "wkd-tester/pkg/domain-errors"
	"wkd-tester/pkg/platform/httputil"
	"wkd-tester/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const (
	cacheNoStore = "no-store"
	cacheStatic  = "public, max-age=604800"
)

//go:embed assets
var assets embed.FS

var (
	pageTemplate = template.Must(template.ParseFS(assets, "assets/index.html"))

	sitemapTemplate = texttemplate.Must(texttemplate.New("sitemap.xml").Funcs(texttemplate.FuncMap{
		"xml": xmlEscape,
	}).ParseFS(assets, "assets/sitemap.xml"))
)

// Service defines the lookup operation the handler serves.
type Service interface {
	Lookup(ctx context.Context, userID string) (*domain.Report, error)
}

// Footer identifies whoever hosts the page.
type Footer struct {
	HostURL  string
	HostName string
}

// Site carries the page-level settings.
type Site struct {
	BaseURL string
	Footer  Footer
}

// Handler wires WKD endpoints to the lookup service.
type Handler struct {
	service Service
	logger  *slog.Logger
	site    Site
}

// New constructs a handler with its dependencies.
func New(service Service, logger *slog.Logger, site Site) *Handler {
	site.BaseURL = strings.TrimSuffix(site.BaseURL, "/")
	return &Handler{
		service: service,
		logger:  logger,
		site:    site,
	}
}

// Register mounts the WKD endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Post("/", h.HandleForm)
	r.Get("/api/lookup", h.HandleAPILookup)
	r.Get("/api/openapi.json", h.HandleOpenAPI)
	r.Get("/api/{userID}", h.HandleAPI)
	r.Get("/.well-known/sitemap.xml", h.HandleSitemap)
}

// HandleAPI handles GET /api/{userID}.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	h.lookupJSON(w, r, pathUserID(r))
}

// pathUserID decodes the {userID} segment exactly once. chi matches against
// RawPath when it is set, so only then is the parameter still escaped.
func pathUserID(r *http.Request) string {
	param := chi.URLParam(r, "userID")
	if r.URL.RawPath == "" {
		return param
	}
	if decoded, err := url.PathUnescape(param); err == nil {
		return decoded
	}
	return param
}

// HandleAPILookup handles GET /api/lookup?email=.
func (h *Handler) HandleAPILookup(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("email") {
		w.Header().Set("Cache-Control", cacheNoStore)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Missing email parameter"))
		return
	}
	h.lookupJSON(w, r, r.URL.Query().Get("email"))
}

func (h *Handler) lookupJSON(w http.ResponseWriter, r *http.Request, userID string) {
	w.Header().Set("Cache-Control", cacheNoStore)

	report, err := h.lookup(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleIndex handles GET /, rendering a result when ?email= is present.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("email") {
		h.renderPage(w, r, cacheStatic, pageData{})
		return
	}
	h.renderLookup(w, r, r.URL.Query().Get("email"))
}

// HandleForm handles POST / from the lookup form.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.Header().Set("Cache-Control", cacheNoStore)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form body"))
		return
	}
	h.renderLookup(w, r, r.PostForm.Get("email"))
}

func (h *Handler) renderLookup(w http.ResponseWriter, r *http.Request, email string) {
	email = strings.TrimSpace(email)
	data := pageData{Email: email}

	report, err := h.lookup(r.Context(), email)
	switch {
	case err == nil:
		data.Report = report
		for _, m := range domain.Methods() {
			data.Methods = append(data.Methods, methodView{Title: m.Title(), Result: report.Method(m)})
		}
	case errors.Is(err, domain.ErrInvalidUserID):
		data.Error = "Not a valid email address: " + email
	default:
		data.Error = "Lookup failed, please try again"
	}

	h.renderPage(w, r, cacheNoStore, data)
}

// HandleSitemap handles GET /.well-known/sitemap.xml.
func (h *Handler) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sitemapTemplate.Execute(&buf, h.site); err != nil {
		h.logger.ErrorContext(r.Context(), "sitemap rendering failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", cacheStatic)
	_, _ = w.Write(buf.Bytes())
}

// HandleOpenAPI handles GET /api/openapi.json.
func (h *Handler) HandleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	doc, err := assets.ReadFile("assets/openapi.json")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", cacheStatic)
	_, _ = w.Write(doc)
}

// lookup runs the service and converts an invalid user ID into a coded error.
func (h *Handler) lookup(ctx context.Context, userID string) (*domain.Report, error) {
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	report, err := h.service.Lookup(ctx, userID)
	if errors.Is(err, domain.ErrInvalidUserID) {
		h.logger.InfoContext(ctx, "invalid user id",
			"request_id", requestID,
			"user_id", userID,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidUserID, err.Error())
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "wkd lookup failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		return nil, err
	}

	h.logger.InfoContext(ctx, "wkd lookup served",
		"request_id", requestID,
		"user_id", userID,
		"direct_ok", report.Direct.OK(),
		"advanced_ok", report.Advanced.OK(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

type pageData struct {
	Site    Site
	Email   string
	Report  *domain.Report
	Methods []methodView
	Error   string
}

type methodView struct {
	Title  string
	Result domain.MethodResult
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, cacheControl string, data pageData) {
	data.Site = h.site

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "template rendering failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		w.Header().Set("Cache-Control", cacheNoStore)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheControl)
	_, _ = w.Write(buf.Bytes())
}

func xmlEscape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}
