package app

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/datajar/datajar/internal/analysis"
	"github.com/datajar/datajar/internal/chart"
	"github.com/datajar/datajar/internal/chat"
	"github.com/datajar/datajar/internal/classify"
	"github.com/datajar/datajar/internal/config"
	"github.com/datajar/datajar/internal/conversation"
	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/llm"
	"github.com/datajar/datajar/internal/log"
	"github.com/datajar/datajar/internal/observability"
	"github.com/datajar/datajar/internal/tablesource"
)

// llmRateLimit caps sustained model calls per second with a small burst.
// One interactive session never needs more.
const (
	llmRateLimit = 2.0
	llmBurst     = 4
)

// Setup creates and initializes the application for one session.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.TracingEnabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: cfg.ServiceName,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.otelCleanup = shutdown
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	registry := dataset.NewRegistry(logger.With("component", "registry"))
	a.Session = conversation.NewSession(registry)

	// Charts are namespaced per session so concurrent sessions never see
	// each other's artifacts.
	chartDir := filepath.Join(cfg.ChartDir, a.Session.ID.String())
	charts, err := chart.NewStore(chartDir, cfg.MaxCharts, logger.With("component", "charts"))
	if err != nil {
		return nil, err
	}

	caller := llm.NewCaller(g, logger.With("component", "llm"),
		llm.WithRateLimit(llmRateLimit, llmBurst))

	classifier := classify.New(caller, cfg.FullClassifierModel(), logger.With("component", "classify"))
	responder := chat.NewResponder(caller, cfg.FullModelName(), logger.With("component", "chat"))
	rewriter := analysis.NewGenerator(caller, cfg.FullModelName(), logger.With("component", "rewrite"))
	adapter := analysis.NewAdapter(charts, logger.With("component", "adapter"))

	agentLogger := logger.With("component", "agent")
	agentFor := func(tbl *dataset.Table) analysis.Agent {
		return analysis.NewTableAgent(g, cfg.FullModelName(), tbl, agentLogger)
	}

	a.Orchestrator = conversation.NewOrchestrator(
		classifier, responder, rewriter, adapter, agentFor,
		logger.With("component", "orchestrator"))

	// The remote table source is optional; missing credentials degrade
	// the fetch feature with a warning instead of failing startup.
	if connStr := cfg.ConnString(); connStr != "" {
		source, err := tablesource.New(ctx, connStr, logger.With("component", "tablesource"))
		if err != nil {
			logger.Warn("remote table source unavailable", "error", err)
		} else {
			a.Source = source
		}
	} else {
		logger.Debug("remote table source not configured")
	}

	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		if cfg.ClassifierModel != cfg.ModelName {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: cfg.ClassifierModel,
				Type: "chat",
			}, nil)
		}
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		logger.Info("initialized genkit with googleai provider", "model", cfg.ModelName)

	default: // openai
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit with openai provider",
			"model", cfg.ModelName, "classifier", cfg.ClassifierModel)
	}

	return g, nil
}
