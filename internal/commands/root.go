// Package commands implements the rurl command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gaborage/rurl/config"
	"github.com/gaborage/rurl/httpclient"
	"github.com/gaborage/rurl/logger"
	"github.com/gaborage/rurl/observability"
)

// ExitUsage is returned for flag, argument and configuration failures.
const ExitUsage = 2

// GlobalOptions holds the flags shared by every request command.
type GlobalOptions struct {
	ConfigFile string
	LogLevel   string
	LogPretty  bool

	Timeout       time.Duration
	MaxRequest    int
	Insecure      bool
	CookieDir     string
	CookieFile    string
	CookieJarFile string
	HeaderFile    string
	Headers       []string
	OutputFile    string
	Fail          bool
	Include       bool
}

// Env is the process environment seen by the commands.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Fs     afero.Fs
	// Transport replaces the network transport when set.
	Transport httpclient.Transport
}

func (e *Env) defaults() {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Fs == nil {
		e.Fs = afero.NewOsFs()
	}
}

// NewRootCommand builds the rurl command tree.
func NewRootCommand(version string, env *Env) *cobra.Command {
	env.defaults()
	opts := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "rurl",
		Short: "HTTP requests with persistent per-origin cookies",
		Long: `rurl performs HTTP requests, keeping the cookies each origin sets in a
per-origin cache file and retrying attempts that time out.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default "+config.DefaultFile+" when present)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "Log level (trace|debug|info|warn|error|disabled)")
	pf.BoolVar(&opts.LogPretty, "log-pretty", false, "Human readable logs")
	pf.DurationVarP(&opts.Timeout, "timeout", "t", 0, "Timeout of a single attempt")
	pf.IntVar(&opts.MaxRequest, "max-request", 0, "Extra attempts after timed-out ones")
	pf.BoolVarP(&opts.Insecure, "insecure", "k", false, "Skip TLS certificate verification")
	pf.StringVar(&opts.CookieDir, "cookie-dir", "", "Directory of the per-origin cookie cache")
	pf.StringVarP(&opts.CookieFile, "cookie", "b", "", "Netscape cookie file to send cookies from")
	pf.StringVar(&opts.CookieJarFile, "cookie-jar", "", "Write the origin's cookies to this Netscape file")
	pf.StringVarP(&opts.HeaderFile, "dump-header", "D", "", "Write response header lines to this file")
	pf.StringArrayVarP(&opts.Headers, "header", "H", nil, "Extra header \"Name: value\" (repeatable)")
	pf.StringVarP(&opts.OutputFile, "output", "o", "", "Write the body to this file instead of stdout")
	pf.BoolVarP(&opts.Fail, "fail", "f", false, "Fail on HTTP status 400 and above")
	pf.BoolVarP(&opts.Include, "include", "i", false, "Print the status line and headers before the body")

	root.AddCommand(
		newGetCommand(opts, env),
		newPostCommand(opts, env),
		newRequestCommand(opts, env),
		NewVersionCommand(version),
	)
	return root
}

// Execute runs the command tree with args and returns the process exit code:
// 0 on success, the request error code on request failure, ExitUsage otherwise.
func Execute(version string, args []string, env *Env) int {
	if env == nil {
		env = &Env{}
	}
	root := NewRootCommand(version, env)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}

	var reqErr *httpclient.RequestError
	if errors.As(err, &reqErr) {
		fmt.Fprintf(env.Stderr, "rurl: (%d) %s\n", reqErr.Code, reqErr.Message)
		return int(reqErr.Code)
	}
	fmt.Fprintf(env.Stderr, "rurl: %v\n", err)
	return ExitUsage
}

// session is everything one command invocation needs.
type session struct {
	cfg      *config.Config
	log      logger.Logger
	provider observability.Provider
	client   httpclient.Client
	env      *Env
	opts     *GlobalOptions
}

func newSession(cmd *cobra.Command, opts *GlobalOptions, env *Env) (*session, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, opts, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(env.Stderr, cfg.Log.Level, cfg.Log.Pretty, nil).
		WithFields(map[string]any{"command": cmd.Name()})
	provider, err := observability.NewProvider(&cfg.Observability,
		observability.WithWriter(env.Stderr),
		observability.WithLogger(log),
		observability.WithGlobal(),
	)
	if err != nil {
		return nil, err
	}

	b := httpclient.NewFromConfig(&cfg.Client, log).
		WithFs(env.Fs).
		WithTracerProvider(provider.TracerProvider()).
		WithMeterProvider(provider.MeterProvider()).
		WithOptions(&httpclient.Options{FailOnHTTPError: httpclient.Bool(opts.Fail)}).
		OnError(func(_ context.Context, reqErr *httpclient.RequestError) {
			log.Debug().Int("code", int(reqErr.Code)).Int("attempts", reqErr.Attempts).Msg("Request failed")
		})
	if env.Transport != nil {
		b.WithTransport(env.Transport)
	}

	return &session{cfg: cfg, log: log, provider: provider, client: b.Build(), env: env, opts: opts}, nil
}

func (s *session) close() {
	if err := observability.Shutdown(s.provider, 0); err != nil {
		s.log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

// applyFlags overlays explicitly set flags on the loaded configuration.
func applyFlags(cmd *cobra.Command, opts *GlobalOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	if flags.Changed("log-pretty") {
		cfg.Log.Pretty = opts.LogPretty
	}
	if flags.Changed("timeout") {
		cfg.Client.Timeout = opts.Timeout
	}
	if flags.Changed("max-request") {
		cfg.Client.MaxRequest = opts.MaxRequest
	}
	if flags.Changed("insecure") {
		cfg.Client.InsecureSkipVerify = opts.Insecure
	}
	if flags.Changed("cookie-dir") {
		cfg.Client.CookieDir = opts.CookieDir
	}
	if flags.Changed("cookie") {
		cfg.Client.CookieFile = opts.CookieFile
	}
	if flags.Changed("cookie-jar") {
		cfg.Client.CookieJarFile = opts.CookieJarFile
	}
	if flags.Changed("dump-header") {
		cfg.Client.HeaderFile = opts.HeaderFile
	}
}
