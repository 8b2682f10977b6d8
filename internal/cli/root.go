package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pkglist/internal/app"
	"pkglist/internal/core"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "PKGLIST"

type rootOptions struct {
	ConfigFile string
	LogLevel   string
	Release    string
	Sources    []string
	SkipBroken bool
	TempDir    string
	Keep       bool
	Proxy      string
	Arch       string
	Output     string
	Verbose    bool
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stdout, "ERROR: %s\n", errorMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	opts := rootOptions{}
	cmd := &cobra.Command{
		Use:   "pkglist [flags] TEMPLATE",
		Short: "List or depsolve the packages an image template installs",
		Long: "Without --source, print the distinct package names the template installs.\n" +
			"With one or more --source repositories, resolve them and print the full transaction.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          templateArg,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(opts.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPkglist(cmd.Context(), cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVarP(&opts.Release, "release", "r", "", "Release version ($releasever), required for depsolve")
	flags.StringSliceVarP(&opts.Sources, "source", "s", nil, "Repository path, URL or .repo file (repeatable)")
	flags.BoolVar(&opts.SkipBroken, "skip-broken", false, "Skip requests that cannot be resolved")
	flags.StringVar(&opts.TempDir, "tempdir", "", "Reuse this sandbox directory")
	flags.BoolVar(&opts.Keep, "keep", false, "Keep the sandbox directory")
	flags.StringVar(&opts.Proxy, "proxy", "", "Proxy URL for repository access")
	flags.StringVar(&opts.Arch, "arch", "", "Base architecture (default from host)")
	flags.StringVar(&opts.Output, "output", "", "Write the resolved transaction as YAML")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Narrate progress and print repository provenance")

	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("release", flags.Lookup("release"))
	_ = viper.BindPFlag("source", flags.Lookup("source"))
	_ = viper.BindPFlag("skip_broken", flags.Lookup("skip-broken"))
	_ = viper.BindPFlag("tempdir", flags.Lookup("tempdir"))
	_ = viper.BindPFlag("keep", flags.Lookup("keep"))
	_ = viper.BindPFlag("proxy", flags.Lookup("proxy"))
	_ = viper.BindPFlag("arch", flags.Lookup("arch"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	return cmd
}

func templateArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("exactly one template path is required")
	}
	return nil
}

func runPkglist(ctx context.Context, cmd *cobra.Command, template string, opts rootOptions) error {
	ctx = log.Logger.WithContext(ctx)
	service := newAppService()
	sources := resolveStrings(cmd, opts.Sources, "source", "source")
	if len(sources) == 0 {
		_, err := service.List(ctx, app.ListRequest{Template: template})
		return err
	}
	_, err := service.Depsolve(ctx, app.DepsolveRequest{
		Template:   template,
		Release:    resolveString(cmd, opts.Release, "release", "release"),
		Sources:    sources,
		SkipBroken: resolveBool(cmd, opts.SkipBroken, "skip_broken", "skip-broken"),
		TempDir:    resolveString(cmd, opts.TempDir, "tempdir", "tempdir"),
		Keep:       resolveBool(cmd, opts.Keep, "keep", "keep"),
		Proxy:      resolveString(cmd, opts.Proxy, "proxy", "proxy"),
		Arch:       resolveString(cmd, opts.Arch, "arch", "arch"),
		Output:     resolveString(cmd, opts.Output, "output", "output"),
		Verbose:    resolveBool(cmd, opts.Verbose, "verbose", "verbose"),
	})
	return err
}

func newAppService() app.Service {
	service := app.NewService()
	service.Out = os.Stdout
	service.LogConsole = zerolog.ConsoleWriter{Out: os.Stderr}
	return service
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

func exitCodeForError(err error) int {
	var (
		repoErr      *core.RepositoryError
		emptyRequest *core.EmptyRequestError
		missing      *core.MissingPackagesError
		depsolve     *core.DepsolveError
		emptyTx      *core.EmptyTransactionError
	)
	switch {
	case errors.As(err, &repoErr):
		return 3
	case errors.As(err, &emptyRequest), errors.As(err, &missing):
		return 4
	case errors.As(err, &depsolve), errors.As(err, &emptyTx):
		return 5
	}
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists, errbuilder.CodeNotFound:
		return 2
	default:
		return 1
	}
}

// errorMessage renders the single ERROR line. Typed run failures carry
// their own message; coded errors contribute their short message.
func errorMessage(err error) string {
	var (
		repoErr      *core.RepositoryError
		emptyRequest *core.EmptyRequestError
		missing      *core.MissingPackagesError
		depsolve     *core.DepsolveError
		emptyTx      *core.EmptyTransactionError
	)
	if errors.As(err, &repoErr) || errors.As(err, &emptyRequest) || errors.As(err, &missing) ||
		errors.As(err, &depsolve) || errors.As(err, &emptyTx) {
		return err.Error()
	}
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
