package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seo-optimizer/seoaudit/config"
	"github.com/seo-optimizer/seoaudit/logging"
)

var (
	opts       config.Options
	configPath string
	verbose    bool
	noColor    bool

	log = logging.Default()
)

var rootCmd = &cobra.Command{
	Use:   "seoaudit",
	Short: "Single-page SEO audit engine",
	Long: `seoaudit fetches one web page, inspects its markup, probes a handful of
related resources (robots.txt, sitemap, stylesheets, redirects) and scores
the page against a fixed table of SEO checks.`,
	Example: `  seoaudit audit example.com
  seoaudit audit https://example.com/shop -f json -o shop.json
  seoaudit serve --port 8082`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if config.LoadEnvFiles() {
			log.Debug("Loaded environment from .env file")
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		opts = loaded

		log.SetLevel(logging.ParseLevel(opts.LogLevel))
		if verbose {
			log.SetLevel(logging.LevelDebug)
		}
		if noColor || opts.NoColor {
			log.SetColor(false)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "YAML configuration file (default $"+config.EnvConfigFile+")")
	f.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	f.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(auditCmd, serveCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
