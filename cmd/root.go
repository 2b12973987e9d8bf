package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/directory"
	"github.com/isometry/corpdir/internal/ldap"
)

var (
	cfgFile   string
	cfgPreset string
)

var rootCmd = &cobra.Command{
	Use:   "corpdir",
	Short: "Query an LDAP directory for people, groups and org structure",
	Long: `corpdir resolves people, organizational hierarchy, groups and
locations from an LDAP directory.

Results are printed as JSON on stdout; logs go to stderr, so output can
be piped or redirected cleanly. Configuration comes from a JSON file
(--config or $CORPDIR_CONFIG), optionally layered over a deployment
preset (--preset). The bind password may be supplied via
$CORPDIR_BIND_PASSWORD instead of the config file.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to the JSON configuration file (default $CORPDIR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&cfgPreset, "preset", "", "deployment preset: redhat, openldap or ad")
}

// buildLogger configures the process-wide zap logger. Everything the
// logger prints goes to stderr so stdout stays reserved for JSON
// results; when logging.file is set, output is teed there as JSON.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Errorf("invalid log level %q", cfg.Level)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level),
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, errors.Wrapf(err, "opening log file %s", cfg.File)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(f), level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// runDirectory loads configuration, opens a directory session and runs
// op against the resolver set, printing its result as JSON on stdout.
// The whole span is recorded as a named audit operation.
func runDirectory(cmd *cobra.Command, operation string, fields map[string]any, op func(ctx context.Context, dir *directory.Directory) (any, error)) error {
	cfg, err := config.Load(cfgFile, cfgPreset)
	if err != nil {
		return err
	}
	zl, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}

	log := ldap.NewZapLogger(zl)
	session := ldap.NewSessionManager(cfg, log)
	dir := directory.New(session, cfg, log)

	var result any
	err = ldap.LogOperation(log, operation, fields, func() error {
		return session.WithSession(cmd.Context(), func(ctx context.Context) error {
			var opErr error
			result, opErr = op(ctx, dir)
			return opErr
		})
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
