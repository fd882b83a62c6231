package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"wkd-tester/internal/platform/config"
	"wkd-tester/internal/platform/logger"
	"wkd-tester/internal/platform/version"
	"wkd-tester/internal/wkd/fetch"
	"wkd-tester/internal/wkd/render"
	"wkd-tester/internal/wkd/service"
)

const envPrefix = "WKD_"

type options struct {
	userID       string
	timeout      time.Duration
	maxBodyBytes int64
	probes       bool
	output       string
	logLevel     string
	noColor      bool
}

// newRootCmd builds the CLI. A nil fetcher means a real HTTP client built
// from the flags.
func newRootCmd(fetcher fetch.Fetcher) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "wkd",
		Short: "Check an OpenPGP Web Key Directory",
		Long: `wkd looks up an email address through both Web Key Directory methods
(advanced and direct), checks the responses for common hosting mistakes and
loads the key each method serves.

Example:
  wkd --user-id Joe.Doe@example.org`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return setFlagsFromEnv(envPrefix, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLookup(cmd, opts, fetcher)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.userID, "user-id", "u", "", "The GPG User ID to look up (example: Joe.Doe@example.org)")
	flags.DurationVar(&opts.timeout, "timeout", config.DefaultFetchTimeout, "Timeout for each HTTP request")
	flags.Int64Var(&opts.maxBodyBytes, "max-body-bytes", config.DefaultMaxBodyBytes, "Largest response body accepted")
	flags.BoolVar(&opts.probes, "probes", true, "Run the HEAD, directory index and policy file checks")
	flags.StringVarP(&opts.output, "output", "o", string(render.FormatText), "Output format (text, json)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")
	_ = rootCmd.MarkFlagRequired("user-id")

	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func runLookup(cmd *cobra.Command, opts options, fetcher fetch.Fetcher) error {
	format, err := render.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
	if fetcher == nil {
		fetcher = fetch.NewClient(
			fetch.WithTimeout(opts.timeout),
			fetch.WithMaxBodyBytes(opts.maxBodyBytes),
			fetch.WithUserAgent(config.DefaultUserAgent+"/"+version.Version),
			fetch.WithLogger(log),
		)
	}

	svc := service.New(fetcher, service.WithLogger(log), service.WithProbes(opts.probes))
	report, err := svc.Lookup(cmd.Context(), opts.userID)
	if err != nil {
		return fmt.Errorf("lookup %q: %w", opts.userID, err)
	}

	colour := !opts.noColor && !color.NoColor && cmd.OutOrStdout() == os.Stdout
	return render.New(format, colour).Write(cmd.OutOrStdout(), report)
}

// setFlagsFromEnv fills every flag not given on the command line from
// <PREFIX>_<FLAG_NAME>, e.g. WKD_USER_ID.
func setFlagsFromEnv(prefix string, fs *pflag.FlagSet) error {
	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) {
		set[f.Name] = true
	})

	var errs []string
	fs.VisitAll(func(f *pflag.Flag) {
		// ignore flags set from the commandline
		if set[f.Name] {
			return
		}
		// remove trailing _ to reduce common errors with the prefix, i.e. people setting it to MY_PROG_
		cleanPrefix := strings.TrimSuffix(prefix, "_")
		name := fmt.Sprintf("%s_%s", cleanPrefix, strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"))
		if e, ok := os.LookupEnv(name); ok {
			if err := fs.Set(f.Name, e); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}
