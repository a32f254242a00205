package cli

import (
	"errors"
	"fmt"

	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/entity"
	"github.com/milk9111/simrig/scene"
	"github.com/milk9111/simrig/scenes"
	"github.com/milk9111/simrig/sim"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ErrSceneFailed = errors.New("scene has entities that failed to initialize")

// OpenScene loads and builds a scene in a fresh world.
func OpenScene(name string, cfg *config.Config, log *zap.Logger) (*scene.Scene, error) {
	spec, err := scene.Open(name)
	if err != nil {
		return nil, err
	}
	world := sim.NewWorld(cfg.Simulation, log)
	s, err := scene.Build(world, spec, cfg, log)
	if err != nil {
		world.Teardown()
		return nil, err
	}
	return s, nil
}

// StartScene starts s and turns a dependency cycle into an error. Every other
// panic keeps unwinding.
func StartScene(s *scene.Scene) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if re, ok := r.(*entity.ReentrancyError); ok {
			err = fmt.Errorf("scene %s: %w", s.Name(), re)
			return
		}
		panic(r)
	}()
	s.Start()
	return nil
}

// NewScenesCommand lists the bundled scenes.
func NewScenesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List bundled example scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scenes.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
