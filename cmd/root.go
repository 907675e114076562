package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yz4230/dpw-deploy/internal/config"
	"github.com/yz4230/dpw-deploy/internal/deploy"
	"github.com/yz4230/dpw-deploy/internal/usecase"
)

// usageError marks bad flags or arguments; it exits with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{fmt.Errorf("unexpected argument %q for %q", args[0], cmd.CommandPath())}
	}
	return nil
}

// app is the state shared by the commands of one invocation.
type app struct {
	injector *do.Injector
	viper    *viper.Viper
}

func newRootCmd(injector *do.Injector) *cobra.Command {
	a := &app{injector: injector}

	rootCmd := &cobra.Command{
		Use:   "dpw-deploy",
		Short: "Deploy the die per wafer calculator into an isolated environment",
		Long: `dpw-deploy brings a deployment directory to a working, up-to-date install:
it clones the repository if needed, force-checks-out the requested branch,
creates a Python virtual environment at <dir>/.venv, installs the project in
editable mode and optionally runs its test suite. Re-running is safe.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          noArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(cmd.Flags())
			if err != nil {
				return err
			}
			a.viper = v

			level := lo.Ternary(v.GetBool(config.KeyVerbose), zerolog.DebugLevel, zerolog.InfoLevel)
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).With().Timestamp().Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.viper)
			if err != nil {
				return err
			}
			zerolog.Ctx(cmd.Context()).Debug().
				Str("dir", cfg.DeployDir).
				Str("repo", cfg.RepoURL).
				Str("branch", cfg.Branch).
				Bool("run_tests", cfg.RunTests).
				Str("history", cfg.HistoryPath).
				Msg("loaded configuration")

			injectDependencies(a.injector, cmd.OutOrStdout(), cfg.HistoryPath)
			_, err = do.MustInvoke[usecase.DeployUsecase](a.injector).Execute(cmd.Context(), cfg)
			return err
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})
	config.RegisterFlags(rootCmd.Flags())
	config.RegisterPersistentFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newHistoryCmd(a))
	return rootCmd
}

// run executes one invocation and returns the process exit status.
func run(ctx context.Context, injector *do.Injector, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(injector)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	c, err := rootCmd.ExecuteContextC(ctx)
	if serr := injector.Shutdown(); serr != nil {
		fmt.Fprintf(stderr, "%s: close history: %v\n", rootCmd.Name(), serr)
	}
	if err == nil {
		return 0
	}

	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "Error: %v\n", uerr.err)
		fmt.Fprint(stderr, c.UsageString())
		return 2
	}
	fmt.Fprintf(stderr, "%s: %v\n", rootCmd.Name(), err)
	return deploy.ExitCode(err)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newInjector(os.Stdout, os.Stderr), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
