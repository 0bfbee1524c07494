package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/repositories"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// RunStore records runs and lists them back for the history command.
type RunStore interface {
	tasks.Recorder
	List(limit int) ([]*models.Run, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	client     services.Client
	store      RunStore
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Client and Store are built from the loaded configuration when left nil.
type RunnerOpts struct {
	Config     *shared.Config
	Client     services.Client
	Store      RunStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		client:     opts.Client,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){initCommand, historyCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the configuration given to [NewRunner], unless --config names a file explicitly.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil && !cmd.IsSet("config") {
		return r.config, nil
	}

	config, err := shared.ResolveConfig(cmd.String("config"), cmd.IsSet("config"))
	if err != nil {
		return nil, err
	}
	r.config = config
	return config, nil
}

// musicClient returns the injected client or builds one against the configured proxy.
func (r *Runner) musicClient(config *shared.Config) services.Client {
	if r.client != nil {
		return r.client
	}

	r.client = services.NewMusicService(services.MusicServiceOpts{
		ProxyURL:   config.Service.ProxyURL,
		RateLimit:  config.Service.RateLimit,
		Timeout:    config.Service.Timeout(),
		HTTPClient: &http.Client{Transport: r.httpClient.Transport, Timeout: config.Service.Timeout()},
	})
	return r.client
}

// runStore returns the injected store or opens the history database. The returned func releases it.
func (r *Runner) runStore(config *shared.Config) (RunStore, func(), error) {
	if r.store != nil {
		return r.store, func() {}, nil
	}

	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run history: %w", err)
	}

	return repositories.NewRunRepository(db), func() { db.Close() }, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
