package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/simrig/cli"
	"github.com/milk9111/simrig/scene"
	"github.com/milk9111/simrig/viewer"
	"github.com/spf13/cobra"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sceneview:", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := &cli.RootOptions{}
	var width, height int

	cmd := &cobra.Command{
		Use:           "sceneview <scene>",
		Short:         "Run a scene in a window",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.Setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			name := args[0]
			load := func() (*scene.Scene, error) {
				s, err := cli.OpenScene(name, cfg, log)
				if err != nil {
					return nil, err
				}
				if err := cli.StartScene(s); err != nil {
					s.Teardown()
					return nil, err
				}
				return s, nil
			}

			game, err := viewer.NewGame(load, log, width, height)
			if err != nil {
				return err
			}
			defer game.Close()

			ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
			ebiten.SetWindowSize(width, height)
			ebiten.SetWindowTitle("sceneview - " + game.Scene().Name())

			if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", os.Getenv(cli.ConfigEnv), "config file")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().IntVar(&width, "width", 1280, "window width")
	cmd.Flags().IntVar(&height, "height", 720, "window height")
	return cmd
}
