package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/arbox/internal/config"
	"github.com/Faultbox/arbox/internal/logger"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	flags config.Flags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "arbox",
		Short: "Cuboid measurement core for AR capture sessions",
		Long: `arbox turns a stream of camera poses and confirm/undo commands into the
eight vertices of a measured box. The replay command drives a capture session
from a recorded pose trace and prints one snapshot per frame.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	a.flags.Register(root.PersistentFlags())

	root.AddCommand(
		newReplayCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration and initializes logging.
func (a *app) setup() error {
	cfg, err := config.Load(&a.flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger.Sugar.Debugf("Config: %+v", *cfg)
	return nil
}
