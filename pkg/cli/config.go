package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/omnitech/supportagent/pkg/adapter"
	"github.com/omnitech/supportagent/pkg/repository"
	"github.com/omnitech/supportagent/pkg/service/mcp"
	"github.com/omnitech/supportagent/pkg/usecase/agent"
	"github.com/omnitech/supportagent/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel   string
	hostConfig string

	// Generation
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Local knowledge fallback
	knowledgeProject    string
	knowledgeDatabase   string
	knowledgeCollection string

	// Transcript archive
	transcriptBucket string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "host-config",
			Aliases:     []string{"H"},
			Usage:       "Path to the capability host YAML config",
			Sources:     cli.EnvVars("SUPPORTAGENT_HOST_CONFIG"),
			Destination: &cfg.hostConfig,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("SUPPORTAGENT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "transcript-bucket",
			Usage:       "Cloud Storage bucket for session transcripts",
			Sources:     cli.EnvVars("SUPPORTAGENT_TRANSCRIPT_BUCKET"),
			Destination: &cfg.transcriptBucket,
		},
	}
}

// llmFlags returns flags for generation and retrieval configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model ID",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "knowledge-project",
			Usage:       "Google Cloud project ID for the knowledge index",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.knowledgeProject,
		},
		&cli.StringFlag{
			Name:        "knowledge-database",
			Usage:       "Firestore database ID for the knowledge index",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.knowledgeDatabase,
		},
		&cli.StringFlag{
			Name:        "knowledge-collection",
			Usage:       "Firestore collection holding knowledge documents",
			Value:       "knowledge",
			Destination: &cfg.knowledgeCollection,
		},
	}
}

// setupLogger installs the configured logger and attaches it to the context
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newAgent connects to the capability host and assembles the orchestrator.
// The generation model, the local knowledge fallback and the transcript
// archive are each wired only when configured.
func (cfg *config) newAgent(ctx context.Context) (*agent.Agent, error) {
	hostCfg, err := mcp.LoadHostConfig(cfg.hostConfig)
	if err != nil {
		return nil, err
	}

	client, err := mcp.Connect(ctx, *hostCfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to capability host")
	}

	input := agent.NewInput{Host: client}

	if cfg.geminiProject != "" {
		var opts []adapter.GeminiOption
		if cfg.geminiModel != "" {
			opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
		}
		llm, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
		if err != nil {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to create gemini adapter")
		}
		input.LLM = llm

		if cfg.knowledgeProject != "" {
			store, err := repository.NewFirestore(ctx, cfg.knowledgeProject, cfg.knowledgeDatabase, llm,
				repository.WithCollection(cfg.knowledgeCollection))
			if err != nil {
				_ = client.Close()
				return nil, goerr.Wrap(err, "failed to create knowledge store")
			}
			input.Knowledge = store
		}
	}

	if cfg.transcriptBucket != "" {
		archive, err := adapter.NewArchive(ctx, cfg.transcriptBucket)
		if err != nil {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to create transcript archive")
		}
		input.Transcripts = archive
	}

	a, err := agent.New(ctx, input)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return a, nil
}
