package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ggonzalez94/swapsage/internal/config"
	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/logging"
	"github.com/ggonzalez94/swapsage/internal/model"
	"github.com/ggonzalez94/swapsage/internal/out"
	"github.com/ggonzalez94/swapsage/internal/schema"
	"github.com/ggonzalez94/swapsage/internal/store"
	"github.com/ggonzalez94/swapsage/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type outputFlags struct {
	Plain       bool
	ResultsOnly bool
	Select      string
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	output      outputFlags
	settings    config.Settings
	store       *store.Store
	services    *services
	logCleanup  func()
	root        *cobra.Command
	lastCommand string
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := normalizeRunError(root.Execute())
	if err != nil {
		state.renderError(err)
	}
	state.close()
	return apperr.ExitCode(err)
}

func (s *runtimeState) close() {
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
	if s.logCleanup != nil {
		s.logCleanup()
		s.logCleanup = nil
	}
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Swap quote, risk and intent backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "schema" {
				return nil
			}
			s.lastCommand = trimRootPath(cmd.CommandPath())

			settings, err := config.Load(s.flags)
			if err != nil {
				return apperr.Wrap(apperr.CodeValidation, "load configuration", err)
			}
			s.settings = settings

			_, cleanup, err := logging.New(settings.LogLevel, settings.LogFormat)
			if err != nil {
				return apperr.Wrap(apperr.CodeValidation, "configure logging", err)
			}
			s.logCleanup = cleanup

			if s.store == nil {
				st, err := store.Open(settings.DatabasePath, settings.LockPath)
				if err != nil {
					return apperr.Wrap(apperr.CodePersistence, "open store", err)
				}
				s.store = st
			}
			s.services = newServices(settings, s.store)
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperr.Wrap(apperr.CodeValidation, "parse flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.BoolVar(&s.output.Plain, "plain", false, "Output plain key=value lines instead of JSON")
	pf.BoolVar(&s.output.ResultsOnly, "results-only", false, "Output only the data payload")
	pf.StringVar(&s.output.Select, "select", "", "Select fields from data (comma-separated)")
	pf.StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	pf.StringVar(&s.flags.EnvFile, "env-file", "", "Path to a .env file (default ./.env when present)")
	pf.StringVar(&s.flags.DatabasePath, "db", "", "Path to the SQLite database")
	pf.Int64Var(&s.flags.ChainID, "chain-id", 0, "Default chain id")
	pf.StringVar(&s.flags.Timeout, "timeout", "", "Aggregator request timeout")
	pf.IntVar(&s.flags.Retries, "retries", -1, "Retries per aggregator request")
	pf.StringVar(&s.flags.QuoteTTL, "quote-ttl", "", "Quote cache freshness window (0 keeps rows forever)")
	pf.StringVar(&s.flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&s.flags.LogFormat, "log-format", "", "Log format: json or console")

	cmd.AddCommand(s.newServeCommand())
	cmd.AddCommand(s.newTokensCommand())
	cmd.AddCommand(s.newQuoteCommand())
	cmd.AddCommand(s.newIntentsCommand())
	cmd.AddCommand(s.newExplainCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, data, model.EnvelopeMeta{})
		},
	}
}

func (s *runtimeState) outputOptions() out.Options {
	opts := out.Options{
		Mode:         out.ModeJSON,
		ResultsOnly:  s.output.ResultsOnly,
		SelectFields: splitCSV(s.output.Select),
	}
	if s.output.Plain {
		opts.Mode = out.ModePlain
	}
	return opts
}

func (s *runtimeState) emitSuccess(cmd *cobra.Command, data any, meta model.EnvelopeMeta) error {
	meta.RequestID = uuid.NewString()
	meta.Timestamp = s.runner.now().UTC()
	meta.Command = trimRootPath(cmd.CommandPath())
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    data,
		Meta:    meta,
	}
	return out.Render(s.runner.stdout, env, s.outputOptions())
}

func (s *runtimeState) renderError(err error) {
	command := s.lastCommand
	if command == "" {
		command = version.CLIName
	}
	message := err.Error()
	if typed, ok := apperr.As(err); ok {
		message = typed.Message
		if typed.Cause != nil {
			message = fmt.Sprintf("%s: %v", typed.Message, typed.Cause)
		}
	}

	opts := s.outputOptions()
	opts.ResultsOnly = false
	opts.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error: &model.ErrorBody{
			Code:    apperr.ExitCode(err),
			Type:    apperr.TypeName(err),
			Message: message,
		},
		Meta: model.EnvelopeMeta{
			RequestID: uuid.NewString(),
			Timestamp: s.runner.now().UTC(),
			Command:   command,
		},
	}
	_ = out.Render(s.runner.stderr, env, opts)
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if norm := strings.TrimSpace(part); norm != "" {
			fields = append(fields, norm)
		}
	}
	return fields
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return apperr.Wrap(apperr.CodeValidation, "invalid command input", err)
	}
	return apperr.Wrap(apperr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
