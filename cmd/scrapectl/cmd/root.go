package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scrapectl",
	Short: "scrapectl manages scraping jobs, results and exports on a scrapedesk backend",
	Long: `scrapectl is the command-line front end for scrapedesk.

It talks to a scraperd backend over its command gateway: every action is a
single named command with JSON arguments. Jobs scrape a page on a schedule
with a CSS selector or a regular expression; results can be exported to
CSV, JSON or HTML files, previewed, and mailed.

Common workflows:

  Prepare the backend and show a summary:
    scrapectl init

  Create a job:
    scrapectl job create --name prices --target https://example.com \
      --selector "a.price" --data-type attribute --attribute href --schedule daily

  Dry-run a job definition without saving it:
    scrapectl job test --target https://example.com --selector h1 --name probe

  Run a job now and list its results:
    scrapectl job run 3
    scrapectl results 3

  Export and preview:
    scrapectl export job 3 --format HTML
    scrapectl files list
    scrapectl files show <path>

Configuration:
  Flags, environment variables and $HOME/.scrapectl.yaml are merged:
    SCRAPEDESK_URL            backend URL (default: http://localhost:6262)
    SCRAPEDESK_TOKEN          bearer token, if the backend requires one
    SCRAPEDESK_THEME          light or dark
    SCRAPEDESK_RESULTS_LIMIT  results fetched per job (default: 100)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Failures already shown as messages are
// not printed a second time.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	var shown shownError
	if err != nil && !errors.As(err, &shown) {
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in home directory with name ".scrapectl"
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".scrapectl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SCRAPEDESK_VARNAME"
	viper.SetEnvPrefix("SCRAPEDESK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.scrapectl.yaml)")

	flags.String("url", "http://localhost:6262", "scraperd URL")
	viper.BindPFlag("url", flags.Lookup("url"))

	flags.StringP("token", "t", "", "API token for authentication")
	viper.BindPFlag("token", flags.Lookup("token"))

	flags.String("theme", "light", "color theme: light or dark")
	viper.BindPFlag("theme", flags.Lookup("theme"))

	flags.Bool("animate", true, "play progress stages at their normal pace")
	viper.BindPFlag("animate", flags.Lookup("animate"))

	flags.Int("results-limit", 100, "number of results fetched per job")
	viper.BindPFlag("results_limit", flags.Lookup("results-limit"))

	flags.Bool("trust-html", false, "preview HTML exports without sanitizing")
	viper.BindPFlag("trust_html", flags.Lookup("trust-html"))

	flags.BoolP("yes", "y", false, "answer yes to confirmation prompts")
	viper.BindPFlag("yes", flags.Lookup("yes"))

	flags.String("log-level", "error", "client log level: debug, info, warn, error")
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
}
