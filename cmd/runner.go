package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/server"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/desertthunder/cadence/internal/tasks"
	"github.com/desertthunder/cadence/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SessionStore persists sessions and reads them back for `cadence history`.
type SessionStore interface {
	tasks.Recorder
	History(limit int) ([]models.SessionHistory, error)
}

// AuthorizeFunc runs an OAuth2 authorization code flow and returns the token.
type AuthorizeFunc func(ctx context.Context, config *oauth2.Config, open func(authURL string), logger *log.Logger) (*oauth2.Token, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
	outputMu   sync.Mutex // serializes progress and result writes

	catalog     tasks.Catalog
	lookup      tasks.TempoLookup
	player      tasks.Player
	fallback    tasks.Fallback
	sessions    SessionStore
	authorize   AuthorizeFunc
	openBrowser func(url string) error
	newQueue    tasks.QueueFactory
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Service fields may be nil; commands that need a missing service fail with [shared.ErrServiceUnavailable].
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer

	Catalog     tasks.Catalog
	Lookup      tasks.TempoLookup
	Player      tasks.Player
	Fallback    tasks.Fallback
	Sessions    SessionStore
	Authorize   AuthorizeFunc
	OpenBrowser func(url string) error
	NewQueue    tasks.QueueFactory
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = defaultConfigPath
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Authorize == nil {
		opts.Authorize = server.Authorize
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		palette:     ui.NewPalette(opts.Output),
		catalog:     opts.Catalog,
		lookup:      opts.Lookup,
		player:      opts.Player,
		fallback:    opts.Fallback,
		sessions:    opts.Sessions,
		authorize:   opts.Authorize,
		openBrowser: opts.OpenBrowser,
		newQueue:    opts.NewQueue,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, sessionCommand, catalogCommand, tempoCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// requireServices fails with [shared.ErrServiceUnavailable] naming the first missing service.
func (r *Runner) requireServices(names ...string) error {
	for _, name := range names {
		var ok bool
		switch name {
		case "catalog":
			ok = r.catalog != nil
		case "tempo":
			ok = r.lookup != nil
		case "player":
			ok = r.player != nil
		case "sessions":
			ok = r.sessions != nil
		}
		if !ok {
			return fmt.Errorf("%w: %s not configured", shared.ErrServiceUnavailable, name)
		}
	}
	return nil
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

	r.outputMu.Lock()
	defer r.outputMu.Unlock()

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
	r.outputMu.Lock()
	defer r.outputMu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	r.outputMu.Lock()
	defer r.outputMu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s", r.palette.Header(title))
}
