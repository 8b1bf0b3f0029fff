package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/hitl"
	"github.com/deepnoodle-ai/hitl/booking"
	"github.com/deepnoodle-ai/hitl/completion"
	"github.com/deepnoodle-ai/hitl/internal/config"
	"github.com/deepnoodle-ai/hitl/postgres"
	"github.com/deepnoodle-ai/hitl/redis"
	"github.com/deepnoodle-ai/hitl/sqlite"
)

// App holds the resources shared by every command.
type App struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Config *config.Config
	Logger *slog.Logger

	configPath string
	verbose    bool
	jsonOutput bool

	checkpointer hitl.Checkpointer
	stepLogger   hitl.StepLogger
	executor     *hitl.Executor
	closers      []func() error
}

func newApp(in io.Reader, out, errOut io.Writer) *App {
	return &App{In: in, Out: out, Err: errOut}
}

// setup loads configuration and opens the checkpoint store.
func (a *App) setup(ctx context.Context) error {
	loader := config.NewLoader()
	var err error
	if a.configPath != "" {
		a.Config, err = loader.LoadFromFile(a.configPath)
	} else {
		a.Config, err = loader.Load()
	}
	if err != nil {
		return err
	}

	level, _ := a.Config.Log.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	if a.Config.Log.JSON {
		a.Logger = hitl.NewJSONLogger(a.Err, level)
	} else {
		a.Logger = hitl.NewLogger(a.Err, level)
	}

	a.checkpointer, err = a.openCheckpointer(ctx)
	if err != nil {
		return err
	}

	historyDir := a.Config.HistoryDir
	if historyDir == "" {
		historyDir, err = defaultDataDir("history")
		if err != nil {
			return err
		}
	}
	a.stepLogger = hitl.NewFileStepLogger(historyDir)
	return nil
}

func (a *App) openCheckpointer(ctx context.Context) (hitl.Checkpointer, error) {
	store := a.Config.Store
	switch store.Driver {
	case config.DriverMemory:
		return hitl.NewMemoryCheckpointer(), nil
	case config.DriverFile:
		dir := store.Dir
		if dir == "" {
			var err error
			if dir, err = defaultDataDir("threads"); err != nil {
				return nil, err
			}
		}
		return hitl.NewFileCheckpointer(dir)
	case config.DriverSQLite:
		checkpointer, err := sqlite.Open(store.DSN, sqlite.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, checkpointer.Close)
		return checkpointer, nil
	case config.DriverPostgres:
		checkpointer, err := postgres.Open(ctx, store.DSN, postgres.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, checkpointer.Close)
		return checkpointer, nil
	case config.DriverRedis:
		checkpointer, client, err := redis.Open(ctx, store.DSN, redis.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return checkpointer, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", store.Driver)
}

// Executor builds the booking workflow executor on first use. Commands that
// only inspect stored threads never need an API key.
func (a *App) Executor() (*hitl.Executor, error) {
	if a.executor != nil {
		return a.executor, nil
	}

	directory := booking.DefaultDirectory()
	if a.Config.DirectoryFile != "" {
		var err error
		if directory, err = booking.LoadDirectoryFile(a.Config.DirectoryFile); err != nil {
			return nil, err
		}
	}

	openAI := a.Config.OpenAI
	maxRetries := openAI.MaxRetries
	if maxRetries == 0 {
		maxRetries = completion.NoRetries
	}
	client, err := completion.NewOpenAI(completion.OpenAIOptions{
		APIKey:            openAI.APIKey,
		BaseURL:           openAI.BaseURL,
		Model:             openAI.Model,
		Temperature:       &openAI.Temperature,
		MaxTokens:         openAI.MaxTokens,
		MaxRetries:        maxRetries,
		RequestsPerSecond: openAI.RequestsPerSecond,
		Timeout:           openAI.Timeout,
		Logger:            a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set OPENAI_API_KEY or openai.api_key)", err)
	}
	a.Logger.Debug("completion client ready", "model", client.Model(), "max_retries", maxRetries)

	wf, err := booking.New(booking.Options{
		Client:    client,
		Directory: directory,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, err
	}

	callbacks := hitl.NewCallbackChain(&loggingCallbacks{logger: a.Logger})
	if !a.jsonOutput {
		callbacks.Add(&progressCallbacks{out: a.Out})
	}

	a.executor, err = hitl.NewExecutor(hitl.ExecutorOptions{
		Workflow:           wf,
		Checkpointer:       a.checkpointer,
		StepLogger:         a.stepLogger,
		Logger:             a.Logger,
		ExecutionCallbacks: callbacks,
	})
	return a.executor, err
}

// Close releases the checkpoint store.
func (a *App) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func defaultDataDir(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".deepnoodle", "hitl", name), nil
}
