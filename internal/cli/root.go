// Package cli implements the zenga command line: the API server and
// the operator commands that work on its database.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zenga/cms/internal/config"
	"github.com/zenga/cms/internal/iocli"
)

// BuildInfo is the version information set via ldflags during build
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

type options struct {
	console iocli.IO
	envFile string
	build   BuildInfo
}

// NewRootCommand builds the zenga command tree. console is used by interactive commands.
func NewRootCommand(build BuildInfo, console iocli.IO) *cobra.Command {
	opts := &options{
		console: console,
		build:   build,
	}

	root := &cobra.Command{
		Use:           "zenga",
		Short:         "Zenga CMS backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "file with environment variables, ignored when missing")

	root.AddCommand(
		newServeCommand(opts),
		newCreateAdminCommand(opts),
		newVersionCommand(opts),
	)

	return root
}

// loadConfig читает конфигурацию; VERSION из окружения имеет приоритет над ldflags
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if cfg.Version == "dev" && o.build.Version != "" {
		cfg.Version = o.build.Version
	}
	return cfg, nil
}

func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	// SlogLevel всегда возвращает допустимое имя уровня
	_ = level.UnmarshalText([]byte(cfg.SlogLevel()))

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
