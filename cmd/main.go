package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/morpheu/heroku-buildpack-python/pkg/builder"
	"github.com/morpheu/heroku-buildpack-python/pkg/config"
	"github.com/morpheu/heroku-buildpack-python/pkg/stack"
)

var rootCmd = &cobra.Command{
	Use:   "python-builder VERSION",
	Short: "Builds Python runtime archives for Heroku stack images",
	Long: `This command compiles the given CPython version from source for the stack
named in the STACK environment variable and packs the result into the
runtime archive the buildpack downloads at app build time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return eris.New("The Python version to build must be passed as the only argument!")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := stack.ParseVersion(args[0])
		if err != nil {
			return err
		}

		cfg, loader := config.Loader()
		if err := loader.Load(); err != nil {
			return eris.Wrap(err, "Failed to load the configuration")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		zerolog.SetGlobalLevel(cfg.LogLevel())

		var logger zerolog.Logger
		if cfg.Log.JSON {
			logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		} else {
			logger = zerolog.New(NewConsoleWriter())
		}
		logger = logger.With().Str("build", nanoid.New()).Logger()

		ctx := builder.WithLogger(context.Background(), &logger)
		return builder.New(cfg).Run(ctx, builder.Request{
			Version: version,
			Stack:   cfg.Stack,
		})
	},
}

// Execute runs the CLI. Configuration problems exit with code 1; a failed
// external build command exits with that command's own exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", eris.ToString(err, os.Getenv("BUILDER_DEBUG") != ""))
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}

	return 1
}
