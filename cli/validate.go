package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scene>",
		Short: "Build and start a scene, then report every entity",
		Long: `Build a scene, start every entity and print the per-entity report
without stepping the simulation. Exits non-zero when any entity failed to
initialize or the scene has a dependency cycle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, name string, cmd *cobra.Command) error {
	cfg, log, err := opts.Setup()
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
	report := s.Report()
	if err := report.WriteText(cmd.OutOrStdout()); err != nil {
		return err
	}
	if !report.OK() {
		log.Warn("validation failed", zap.Int("failed", len(report.Failed())))
		return ErrSceneFailed
	}
	return nil
}
