package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bandcamp-expand/internal/config"
	"bandcamp-expand/internal/display"
	"bandcamp-expand/internal/pipeline"
	"bandcamp-expand/internal/watcher"
)

var errArchivesFailed = errors.New("one or more archives failed")

func main() {
	logger := log.New(os.Stdout, "bandcamp-expand ", log.LstdFlags|log.Lmsgprefix)

	if err := config.LoadEnvFile(); err != nil {
		logger.Fatalf("load env file: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(logger).ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errArchivesFailed) {
			logger.Printf("%v", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bandcamp-expand",
		Short:         "Move downloaded album archives into a codec-sorted music library",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			settings, err := config.ResolveSettings(configPath)
			if err != nil {
				return fmt.Errorf("resolve settings: %w", err)
			}
			if err := applyFlags(&settings, cmd.Flags()); err != nil {
				return err
			}
			if err := settings.Normalize(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}
			if err := settings.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}
			return run(cmd.Context(), settings, logger)
		},
	}
	cmd.Flags().StringP("config", "c", "", "YAML settings file (default $BANDCAMP_CONFIG)")
	cmd.Flags().StringP("source", "s", "", "Directory holding downloaded archives")
	cmd.Flags().StringP("music", "m", "", "Music library root")
	cmd.Flags().String("staging", "", "Staging directory (default <source>/auto)")
	cmd.Flags().Bool("fail-fast", false, "Stop at the first archive that fails")
	cmd.Flags().BoolP("watch", "w", false, "Keep running and process new archives as they appear")
	cmd.Flags().BoolP("verbose", "v", false, "Log every extracted entry and report detail")
	return cmd
}

// applyFlags overrides settings with the flags given on the command line.
// Flags left at their defaults keep the file and environment values.
func applyFlags(s *config.Settings, flags *pflag.FlagSet) error {
	dirs := []struct {
		name   string
		target *string
	}{
		{"source", &s.SourceDir},
		{"music", &s.MusicRoot},
		{"staging", &s.StagingRoot},
	}
	for _, d := range dirs {
		if !flags.Changed(d.name) {
			continue
		}
		value, err := flags.GetString(d.name)
		if err != nil {
			return err
		}
		*d.target = value
	}

	switches := []struct {
		name   string
		target *bool
	}{
		{"fail-fast", &s.FailFast},
		{"watch", &s.Watch},
		{"verbose", &s.Verbose},
	}
	for _, b := range switches {
		if !flags.Changed(b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.target = value
	}
	return nil
}

func run(ctx context.Context, settings config.Settings, logger *log.Logger) error {
	expander := pipeline.NewExpander(settings, logger, pipeline.LogObserver(logger, settings.Verbose))
	logger.Printf("source %s, library %s, staging %s", settings.SourceDir, settings.MusicRoot, settings.StagingRoot)

	if !settings.Watch {
		if stats := runOnce(ctx, expander); len(stats.Errors) > 0 {
			return errArchivesFailed
		}
		return nil
	}

	// The watch is registered before the first pass so archives arriving
	// during it still schedule a run.
	w, err := watcher.New(settings.SourceDir, ".zip", settings.WatchDebounce, func() {
		runOnce(ctx, expander)
	}, logger)
	if err != nil {
		return fmt.Errorf("watch %s: %w", settings.SourceDir, err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			logger.Printf("error closing watcher: %v", err)
		}
	}()

	w.RunNow()
	logger.Printf("watching %s", settings.SourceDir)
	<-ctx.Done()
	logger.Println("shutdown complete")
	return nil
}

func runOnce(ctx context.Context, expander *pipeline.Expander) pipeline.RunStats {
	stats := expander.Run(ctx)
	fmt.Println(display.RenderSummary(display.Summary{
		Total:     stats.Total,
		Processed: stats.Processed,
		Failed:    stats.Failed,
		Tracks:    stats.Tracks,
		Bytes:     stats.Bytes,
		Stopped:   stats.Stopped,
		Errors:    stats.Errors,
	}))
	return stats
}
