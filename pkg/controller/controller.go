// Package controller wires the provisioning stages together and runs them.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcpds/mcpds-setup/pkg/builder"
	"github.com/mcpds/mcpds-setup/pkg/config"
	"github.com/mcpds/mcpds-setup/pkg/confirm"
	"github.com/mcpds/mcpds-setup/pkg/environment"
	"github.com/mcpds/mcpds-setup/pkg/hostapp"
	"github.com/mcpds/mcpds-setup/pkg/logging"
	"github.com/mcpds/mcpds-setup/pkg/provisioner"
	"github.com/mcpds/mcpds-setup/pkg/runner"
	"github.com/mcpds/mcpds-setup/pkg/toolchain"
)

// Config holds the options of a setup run.
type Config struct {
	SettingsPath  string
	WorkDir       string
	Verbose       bool
	Quiet         bool
	LogFile       string
	TraceEndpoint string
	NoRestart     bool
}

// Controller runs the provisioning pipeline.
type Controller struct {
	config  Config
	version string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	runner         runner.Runner
	gate           confirm.Gate
	lookup         config.LookupFunc
	logger         *slog.Logger
	sleep          func(time.Duration)
	tracerProvider trace.TracerProvider
}

// Option configures a Controller.
type Option func(*Controller)

// WithIO sets the operator's input, the output for prompts and reports, and
// the output for logs.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(c *Controller) {
		c.in, c.out, c.errOut = in, out, errOut
	}
}

// WithRunner replaces the command runner.
func WithRunner(r runner.Runner) Option {
	return func(c *Controller) { c.runner = r }
}

// WithGate replaces the interactive prompter.
func WithGate(g confirm.Gate) Option {
	return func(c *Controller) { c.gate = g }
}

// WithLookup replaces the environment used for path expansion.
func WithLookup(lookup config.LookupFunc) Option {
	return func(c *Controller) { c.lookup = lookup }
}

// WithLogger replaces the logger built from Config.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithSleep replaces the pause used between stopping and relaunching the app.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// WithTracerProvider replaces the provider built from Config.TraceEndpoint.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) { c.tracerProvider = tp }
}

// New creates a controller.
func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		config: cfg,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		lookup: config.OSLookup,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetVersion sets the version reported in traces.
func (c *Controller) SetVersion(v string) {
	c.version = v
}

var titleStyle = lipgloss.NewStyle().Bold(true)

// Resolve loads the settings and computes the paths a run would use.
func (c *Controller) Resolve(logger *slog.Logger) (config.Settings, config.Paths, error) {
	workDir := c.config.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.Settings{}, config.Paths{}, fmt.Errorf("getting working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return config.Settings{}, config.Paths{}, fmt.Errorf("resolving working directory: %w", err)
	}
	workDir = builder.FindProjectRoot(workDir, logger)

	settings, err := config.LoadSettings(c.config.SettingsPath, workDir)
	if err != nil {
		return config.Settings{}, config.Paths{}, err
	}
	paths, err := config.Resolve(settings, workDir, c.lookup)
	if err != nil {
		return config.Settings{}, config.Paths{}, err
	}
	return settings, paths, nil
}

// Setup runs the pipeline. The banner and report are written to the output
// unless Config.Quiet is set. A non-nil error means the run stopped early.
func (c *Controller) Setup(ctx context.Context) (*Report, error) {
	logger := c.logger
	if logger == nil {
		l := logging.New(logging.Options{
			Writer:  c.errOut,
			Verbose: c.config.Verbose,
			Quiet:   c.config.Quiet,
			File:    c.config.LogFile,
		})
		defer l.Close()
		logger = l.Logger
	}
	logger = logger.With("run_id", uuid.New().String())

	settings, paths, err := c.Resolve(logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved paths",
		"workdir", paths.WorkDir,
		"config", paths.ConfigPath,
		"app", paths.AppPath,
	)

	tp := c.tracerProvider
	if tp == nil {
		provider, shutdown, err := newTracerProvider(ctx, c.config.TraceEndpoint, c.version)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("flushing traces failed", "error", err)
			}
		}()
		tp = provider
	}

	comps := c.components(settings, paths, logger)
	pipeline := NewPipeline(logger, comps.stages(!c.config.NoRestart),
		WithTracer(tp.Tracer("github.com/mcpds/mcpds-setup/pkg/controller")))

	if !c.config.Quiet {
		fmt.Fprintln(c.out, titleStyle.Render("Starting setup..."))
	}
	report, err := pipeline.Execute(ctx, NewState(paths))

	if !c.config.Quiet {
		report.Render(c.out)
	}
	if err != nil {
		var declined *confirm.DeclinedError
		if errors.As(err, &declined) {
			// Report the refusal without the stage prefix.
			return report, declined
		}
		return report, err
	}

	fmt.Fprintln(c.out, titleStyle.Render("Setup completed successfully!"))
	return report, nil
}

func (c *Controller) components(settings config.Settings, paths config.Paths, logger *slog.Logger) *components {
	run := c.runner
	if run == nil {
		run = runner.New(logger)
	}
	gate := c.gate
	if gate == nil {
		gate = confirm.NewPrompter(c.in, c.out)
	}
	var progress runner.Progress = runner.NoProgress
	if !c.config.Quiet {
		progress = spinnerProgress(c.out)
	}

	env := environment.NewBuilder(run, gate, logger, paths.WorkDir, paths.VenvDir)
	env.SetProgress(progress)

	build := builder.New(run, c.out, logger, paths.WorkDir, paths.DistDir)
	build.SetProgress(progress)

	return &components{
		settings:  settings,
		installer: toolchain.NewInstaller(run, gate, logger, settings.InstallerURL),
		env:       env,
		detector:  hostapp.NewDetector(gate, c.out, logger, paths.AppPath, settings.DownloadURL),
		desktop:   provisioner.NewClaudeDesktop(paths.ConfigPath, settings.Backups, logger),
		builder:   build,
		restarter: hostapp.NewRestarter(run, gate, logger, paths.AppPath, settings.ProcessName, settings.RestartDelay,
			hostapp.WithSleep(c.sleep)),
	}
}
