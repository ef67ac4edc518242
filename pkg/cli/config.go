package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/arjournal/pkg/adapter"
	"github.com/m-mizutani/arjournal/pkg/engine"
	"github.com/m-mizutani/arjournal/pkg/repository"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	backendFile      = "file"
	backendStorage   = "storage"
	backendFirestore = "firestore"
	backendMemory    = "memory"
)

// config holds configuration values
type config struct {
	logLevel string

	// Repository
	backend  string
	dataDir  string
	bucket   string
	prefix   string
	key      string
	project  string
	database string

	// Narration
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string

	// Engine tuning file
	configPath string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("ARJOURNAL_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "backend",
			Aliases:     []string{"b"},
			Usage:       "Where memories are stored (file, storage, firestore, memory)",
			Value:       backendFile,
			Sources:     cli.EnvVars("ARJOURNAL_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory of the file backend",
			Value:       ".arjournal",
			Sources:     cli.EnvVars("ARJOURNAL_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket of the storage backend, or of world snapshots with the firestore backend",
			Sources:     cli.EnvVars("ARJOURNAL_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "prefix",
			Usage:       "Object name prefix of the storage backend",
			Sources:     cli.EnvVars("ARJOURNAL_PREFIX"),
			Destination: &cfg.prefix,
		},
		&cli.StringFlag{
			Name:        "key",
			Usage:       "Blob key of the file and storage backends",
			Value:       repository.DefaultBlobKey,
			Sources:     cli.EnvVars("ARJOURNAL_KEY"),
			Destination: &cfg.key,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID of the firestore backend",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
}

// narrationFlags returns flags for the narration service with destination config
func narrationFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

func engineFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a YAML file tuning the engine",
			Sources:     cli.EnvVars("ARJOURNAL_CONFIG"),
			Destination: &cfg.configPath,
		},
	}
}

// setupLogger installs the configured logger as default and into ctx
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository creates the repository of the selected backend. The returned
// function releases its resources.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, func(), error) {
	nop := func() {}

	switch cfg.backend {
	case backendMemory:
		return repository.NewMemory(), nop, nil

	case backendFile:
		if cfg.dataDir == "" {
			return nil, nil, goerr.New("data-dir is required")
		}
		storage, err := adapter.NewFileStorage(cfg.dataDir)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create file storage")
		}
		return repository.NewBlob(storage, cfg.key), nop, nil

	case backendStorage:
		storage, err := cfg.newStorage(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewBlob(storage, cfg.key), nop, nil

	case backendFirestore:
		if cfg.project == "" {
			return nil, nil, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, nil, goerr.New("database is required")
		}
		var opts []repository.FirestoreOption
		if cfg.bucket != "" {
			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, repository.WithSnapshotStore(repository.NewSnapshotStore(storage)))
		}
		repo, err := repository.New(ctx, cfg.project, cfg.database, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				logging.From(ctx).Warn("failed to close firestore client", "error", err)
			}
		}, nil

	default:
		return nil, nil, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

// newStorage creates a new Cloud Storage adapter instance
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	storage, err := adapter.NewCloudStorage(ctx, cfg.bucket, cfg.prefix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newNarrator returns nil when no Gemini credentials are configured.
func (cfg *config) newNarrator(ctx context.Context) (adapter.Narrator, func(), error) {
	if cfg.geminiAPIKey == "" && cfg.geminiProject == "" {
		logging.From(ctx).Debug("no gemini credentials, narration disabled")
		return nil, func() {}, nil
	}
	if cfg.geminiAPIKey == "" && cfg.geminiLocation == "" {
		return nil, nil, goerr.New("gemini-location is required")
	}

	gemini, err := adapter.NewGeminiNarrator(ctx, adapter.GeminiConfig{
		APIKey:   cfg.geminiAPIKey,
		Project:  cfg.geminiProject,
		Location: cfg.geminiLocation,
	})
	if err != nil {
		return nil, nil, err
	}

	cached, err := adapter.NewCachedNarrator(gemini, 256)
	if err != nil {
		return nil, nil, err
	}
	return cached, cached.Close, nil
}

// newEngineConfig returns the default engine configuration overridden by
// the YAML file given with --config.
func (cfg *config) newEngineConfig() (engine.Config, error) {
	ec := engine.DefaultConfig()
	if cfg.configPath == "" {
		return ec, nil
	}

	data, err := os.ReadFile(cfg.configPath)
	if err != nil {
		return ec, goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configPath))
	}
	if err := yaml.Unmarshal(data, &ec); err != nil {
		return ec, goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configPath))
	}
	if err := ec.Validate(); err != nil {
		return ec, goerr.Wrap(err, "invalid config file", goerr.V("path", cfg.configPath))
	}
	return ec, nil
}
