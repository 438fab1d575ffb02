package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pamong_newsroom/config"
)

const defaultConfigPath = "config.yaml"

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:           "pamong",
		Short:         "PamongRakyat newsroom with an AI autopilot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.stdout = cmd.OutOrStdout()
			ctx.initLogger(cmd.ErrOrStderr())
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfigPath, "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable info logs")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newAutopilotCommand(ctx))
	rootCmd.AddCommand(newArticlesCommand(ctx))
	rootCmd.AddCommand(newDBCommand(ctx))

	return rootCmd
}

// commandContext carries the flags and lazily loaded config shared by every subcommand.
type commandContext struct {
	configFlag *string
	verbose    *bool

	stdout io.Writer
	logger *slog.Logger

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		stdout:     os.Stdout,
		logger:     slog.Default(),
	}
}

func (c *commandContext) initLogger(w io.Writer) {
	level := slog.LevelWarn
	if c.verbose != nil && *c.verbose {
		level = slog.LevelInfo
	}
	c.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}
