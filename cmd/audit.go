package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/seo-optimizer/seoaudit/analyzer"
	"github.com/seo-optimizer/seoaudit/config"
	"github.com/seo-optimizer/seoaudit/report"
)

var auditFlags struct {
	output       string
	format       string
	timeout      time.Duration
	probeTimeout time.Duration
	userAgent    string
}

var auditCmd = &cobra.Command{
	Use:   "audit <url>",
	Short: "Audit a single page and write a report",
	Long: `Audit fetches the page, runs every check and writes a report. The scheme
defaults to https:// when it is omitted. Use "-o -" to print the report to
standard output.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		applyAuditFlags(cmd.Flags(), &opts)
		format, err := report.ParseFormat(opts.OutputFormat)
		if err != nil {
			return err
		}
		opts.OutputFormat = string(format)
		return opts.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a := analyzer.New(
			analyzer.WithFetcher(analyzer.NewHTTPFetcher(opts.UserAgent)),
			analyzer.WithTimeouts(opts.FetchTimeout, opts.ProbeTimeout),
			analyzer.WithLogger(log),
		)
		return runAudit(ctx, cmd.OutOrStdout(), a, opts, args[0])
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringVarP(&auditFlags.output, "output", "o", "", "Report file (default seoaudit-<domain>.<format>)")
	f.StringVarP(&auditFlags.format, "format", "f", "md", "Report format: md, json, yaml")
	f.DurationVar(&auditFlags.timeout, "timeout", analyzer.DefaultFetchTimeout, "Timeout for fetching the page")
	f.DurationVar(&auditFlags.probeTimeout, "probe-timeout", analyzer.DefaultProbeTimeout, "Timeout for each secondary request")
	f.StringVar(&auditFlags.userAgent, "user-agent", "", "User-Agent header sent with every request")
}

// applyAuditFlags copies the flags given on the command line over the
// configured options.
func applyAuditFlags(f *pflag.FlagSet, o *config.Options) {
	f.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "output":
			o.OutputFile = auditFlags.output
		case "format":
			o.OutputFormat = auditFlags.format
		case "timeout":
			o.FetchTimeout = auditFlags.timeout
		case "probe-timeout":
			o.ProbeTimeout = auditFlags.probeTimeout
		case "user-agent":
			o.UserAgent = auditFlags.userAgent
		}
	})
}

// runAudit audits target and writes the report. Progress goes to out unless
// the report itself is written there.
func runAudit(ctx context.Context, out io.Writer, a *analyzer.Analyzer, o config.Options, target string) error {
	format := report.Format(o.OutputFormat)

	res, err := a.Analyze(ctx, target)
	if err != nil {
		return err
	}

	path := o.OutputFile
	if path == "" {
		path = report.OutputFileName(res.NormalizedURL, format)
	}
	if path == "-" {
		return report.Render(out, res, format)
	}

	if err := writeReport(path, res, format); err != nil {
		return err
	}
	fmt.Fprintln(out, "Analysis complete!")
	fmt.Fprintf(out, "SEO Score: %d/100\n", res.ScoreCard.Score)
	fmt.Fprintf(out, "Report saved to: %s\n", path)
	return nil
}

func writeReport(path string, res *analyzer.AnalysisResult, format report.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := report.Render(f, res, format); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
