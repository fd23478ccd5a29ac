package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"luxespace/internal/detach"
	"luxespace/internal/gateway/config"
	"luxespace/internal/gateway/handler"
	"luxespace/internal/gateway/repository/session"
	"luxespace/internal/gateway/server"
	"luxespace/internal/lead"
	llmclient "luxespace/internal/llmClient"
	"luxespace/internal/pipeline"
	"luxespace/internal/wizard"
)

type App struct {
	server *server.Server
	runner *detach.Runner
	log    *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Dependencies
	runner := detach.New(log)
	llm, credential := newLLM(cfg, log)
	analyzer := pipeline.New(pipeline.Options{
		LLM:             llm,
		Credential:      credential,
		AnalysisTimeout: cfg.Gemini.AnalysisTimeout,
		RenderTimeout:   cfg.Gemini.RenderTimeout,
		Logger:          log,
	})
	leads := lead.NewLogger(lead.Options{
		Webhook:  lead.NewWebhook(cfg.Lead.WebhookURL, &http.Client{}),
		Runner:   runner,
		Location: loc,
		Timeout:  cfg.Lead.Timeout,
		Logger:   log,
	})
	sessions := session.NewStore(cfg.Session.Max, cfg.Session.TTL, func() *wizard.Machine {
		return wizard.New(analyzer, leads, log)
	})
	if cfg.Lead.WebhookURL == "" {
		log.Warn("LEAD_WEBHOOK_URL is not set; leads will not be recorded")
	}
	renders, err := chooseRenderStore(cfg, log)
	if err != nil {
		return nil, err
	}

	sessionHandler := handler.NewSessionHandler(handler.Options{
		Sessions:       sessions,
		Renders:        renders,
		Runner:         runner,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log,
	})

	// Routing & Server
	mux := server.NewMux(sessionHandler, cfg.AllowedOrigins, log)
	srv := server.New(cfg.Port, mux, log)

	return &App{
		server: srv,
		runner: runner,
		log:    log,
	}, nil
}

func newLLM(cfg *config.Config, log *zap.Logger) (llmclient.Client, func() string) {
	if cfg.Gemini.Fake {
		log.Warn("using fake model client")
		return llmclient.Wrap(&llmclient.FakeClient{}, llmclient.WithLogging(log)), func() string { return "fake" }
	}
	gemini := llmclient.NewGeminiClient(config.APIKey, cfg.Gemini.AnalysisModel, cfg.Gemini.ImageModel)
	if config.APIKey() == "" {
		log.Warn("GEMINI_API_KEY is not set; submissions will fail until it is")
	}
	return llmclient.Wrap(gemini, llmclient.WithLogging(log)), config.APIKey
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops accepting requests, then waits for detached tasks such as
// lead deliveries until ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	serverErr := a.server.Shutdown(ctx)
	if err := a.runner.Shutdown(ctx); err != nil {
		a.log.Warn("detached tasks did not finish", zap.Error(err))
		if serverErr == nil {
			return fmt.Errorf("drain detached tasks: %w", err)
		}
	}
	return serverErr
}
