package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Ticks  int
	Strict bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run <scene>",
		Short: "Step a scene a fixed number of ticks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScene(rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 600, "fixed steps to run")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "refuse to run when an entity failed")
	return cmd
}

func runScene(rootOpts *RootOptions, opts *RunOptions, name string, cmd *cobra.Command) error {
	if opts.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", opts.Ticks)
	}
	cfg, log, err := rootOpts.Setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	s, err := OpenScene(name, cfg, log)
	if err != nil {
		return err
	}
	defer s.Teardown()

	if err := StartScene(s); err != nil {
		return err
	}
	if r := s.Report(); !r.OK() {
		if opts.Strict {
			_ = r.WriteText(cmd.OutOrStdout())
			return ErrSceneFailed
		}
		for _, e := range r.Failed() {
			log.Warn("entity not running", zap.String("kind", e.Kind), zap.String("entity", e.Name), zap.String("reason", e.Reason))
		}
	}

	ctx := cmd.Context()
	for i := 0; i < opts.Ticks; i++ {
		if ctx != nil && ctx.Err() != nil {
			log.Info("interrupted", zap.Int("ticks", i))
			break
		}
		s.Run(1)
	}
	return s.Report().WriteText(cmd.OutOrStdout())
}
