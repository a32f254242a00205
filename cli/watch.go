package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/scene"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <scene-file>",
		Short: "Run a scene in real time and rebuild it when its files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, args[0], debounce, cmd)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", scene.DefaultDebounce, "quiet period before a rebuild")
	return cmd
}

func runWatch(rootOpts *RootOptions, path string, debounce time.Duration, cmd *cobra.Command) error {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return fmt.Errorf("watch needs a scene file on disk: %s", path)
	}
	cfg, log, err := rootOpts.Setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	w, err := scene.NewWatcher(log, debounce, filepath.Dir(path))
	if err != nil {
		return err
	}
	defer w.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	current := reload(path, cfg, log, cmd)
	defer func() {
		if current != nil {
			current.Teardown()
		}
	}()

	ticker := time.NewTicker(cfg.Simulation.Interval())
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case files, ok := <-w.Events():
			if !ok {
				return nil
			}
			log.Info("reloading", zap.Strings("files", files))
			if current != nil {
				current.Teardown()
			}
			current = reload(path, cfg, log, cmd)
			last = time.Now()
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			if current != nil {
				current.Update(now.Sub(last))
			}
			last = now
		}
	}
}

// reload builds and starts the scene and prints its report. Failures are
// logged and leave nothing running until the next change.
func reload(path string, cfg *config.Config, log *zap.Logger, cmd *cobra.Command) *scene.Scene {
	s, err := OpenScene(path, cfg, log)
	if err != nil {
		log.Error("scene load failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	if err := StartScene(s); err != nil {
		log.Error("scene start failed", zap.Error(err))
		s.Teardown()
		return nil
	}
	if err := s.Report().WriteText(cmd.OutOrStdout()); err != nil {
		log.Warn("report", zap.Error(err))
	}
	return s
}
