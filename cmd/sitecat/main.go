package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chriscorrea/sitecat/internal/app"
	"github.com/chriscorrea/sitecat/internal/config"
	"github.com/chriscorrea/sitecat/internal/spinner"

	"github.com/spf13/cobra"
)

// buildConfig loads the configuration and applies command-line overrides
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("file") {
		cfg.Corpus, _ = cmd.Flags().GetString("file")
	}
	if cmd.Flags().Lookup("addr") != nil && cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}
	return cfg, nil
}

// setupLogger configures the default slog logger from config, with --debug
// taking precedence
func setupLogger(w io.Writer, cfg *config.Config, debug bool) {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// withApp builds the app from flags and config and runs fn with it. A
// spinner showing message and page progress runs on interactive terminals
// unless message is empty or output is quiet.
func withApp(cmd *cobra.Command, message string, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")
	setupLogger(os.Stderr, cfg, debug)

	// create context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	var s *spinner.Spinner
	if message != "" && !quiet && !debug && spinner.Interactive(os.Stderr) {
		s = spinner.New(ctx, os.Stderr, message)
		opts = append(opts, app.WithProgress(s.Progress))
		s.Start()
		defer s.Stop()
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close browser", "error", err)
		}
	}()

	return fn(ctx, a)
}

// output writes v as JSON when --json is set, otherwise the text form
func output(cmd *cobra.Command, v any, text string) error {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprint(out, text)
	return err
}

var rootCmd = &cobra.Command{
	Use:   "sitecat",
	Short: "Classify websites into topical categories",
	Long: `Sitecat classifies a website into one of the categories of a labeled corpus, using the text of its page.

The corpus is a '|'-delimited file with a header naming the url and category columns.
Pages are cached on disk and trained models are saved, so repeated runs are fast.

Examples:
  sitecat classify tvn24.pl
  sitecat accuracy 0.8 -f websites.txt
  sitecat xval 5
  sitecat update sport.pl sport
  sitecat serve --addr :8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./sitecat.yaml if present)")
	rootCmd.PersistentFlags().StringP("file", "f", "", "Corpus file (default: websites.txt)")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")

	rootCmd.AddCommand(classifyCmd, accuracyCmd, xvalCmd, updateCmd, pullCmd, inspectCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
