package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/engine"
	"github.com/use-agent/cartlink/probe"
)

var (
	flagReadable bool
	flagMarkdown bool
	flagSave     string
	flagEngine   string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "cartlink-probe <url>",
	Short: "Fetch a cart or share URL and report what the extraction pipeline sees.",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagReadable, "readable", false, "print the readability title and excerpt")
	rootCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "dump the page as Markdown")
	rootCmd.Flags().StringVar(&flagSave, "save", "", "write the fetched HTML to this file")
	rootCmd.Flags().StringVar(&flagEngine, "engine", "", "fetch engine override (http or browser)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Load()
	if flagEngine != "" {
		cfg.Fetch.Engine = flagEngine
	}

	var eng engine.Engine
	switch cfg.Fetch.Engine {
	case config.EngineBrowser:
		be, err := engine.NewBrowserEngine(cfg.Browser)
		if err != nil {
			return err
		}
		defer be.Close()
		eng = be
	default:
		he, err := engine.NewHTTPEngine(cfg.Fetch.Proxy)
		if err != nil {
			return err
		}
		eng = he
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Fetch.Timeout)
	defer cancel()

	target := args[0]
	report, err := probe.Inspect(ctx, eng, cfg, target)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report.Write(out)

	if flagReadable {
		fmt.Fprintln(out, "\nReadability:")
		if r, err := probe.ReadableSummary(report.HTML, report.FinalURL); err != nil {
			fmt.Fprintf(out, "  unavailable: %v\n", err)
		} else {
			fmt.Fprintf(out, "  title:   %s\n  site:    %s\n  excerpt: %s\n  text:    %d chars\n", r.Title, r.SiteName, r.Excerpt, r.TextLen)
		}
	}

	if flagMarkdown {
		md, err := probe.ToMarkdown(report.HTML, report.FinalURL)
		if err != nil {
			return fmt.Errorf("markdown: %w", err)
		}
		fmt.Fprintf(out, "\nMarkdown:\n%s\n", md)
	}

	if flagSave != "" {
		if err := os.WriteFile(flagSave, []byte(report.HTML), 0o644); err != nil {
			return fmt.Errorf("save html: %w", err)
		}
		fmt.Fprintf(out, "\nSaved HTML to %s\n", flagSave)
	}
	return nil
}
