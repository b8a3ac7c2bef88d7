package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	specialistx "github.com/saborai/saborai/agent/agents/specialist"
	supervisorx "github.com/saborai/saborai/agent/agents/supervisor"
	contractx "github.com/saborai/saborai/agent/contract"
	historyx "github.com/saborai/saborai/agent/history"
	llmx "github.com/saborai/saborai/agent/llm"
	menux "github.com/saborai/saborai/agent/menu"
	retryx "github.com/saborai/saborai/agent/retry"
	configx "github.com/saborai/saborai/pkg/config"
	logx "github.com/saborai/saborai/pkg/logger"
	serverx "github.com/saborai/saborai/server"
)

func main() {
	logCfg := configx.MustLoad[logx.Config]("LOG")
	logx.Init(*logCfg)

	llmCfg := configx.MustLoad[llmx.Config]("LLM")
	reasoner, err := llmx.NewClient(*llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build llm client")
	}

	registry, err := specialistx.NewRegistry(reasoner)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build specialist registry")
	}

	menuStore := buildMenuStore()
	recorder := buildRecorder()
	retryPolicy := configx.MustLoad[retryx.Policy]("RETRY")

	supervisor, err := supervisorx.New(reasoner, menuStore, registry, recorder, *retryPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build supervisor")
	}

	srv, err := serverx.New(supervisor, menuStore)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	serverCfg := configx.MustLoad[serverx.Config]("SERVER")
	log.Info().Str("addr", serverCfg.Addr).Msg("saborai listening")
	if err := http.ListenAndServe(serverCfg.Addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// buildMenuStore prefers Upstash Redis when configured and falls back to the
// in-process store so the binary stays usable without external services.
func buildMenuStore() interface {
	menux.Store
	contractx.Retriever
} {
	redisCfg := configx.MustLoad[menux.UpstashRedisConfig]("MENU_REDIS")
	if redisCfg.URL == "" {
		log.Warn().Msg("MENU_REDIS_URL not set, using in-memory menu store")
		return menux.NewMemoryStore()
	}

	store, err := menux.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build menu store")
	}
	return store
}

// buildRecorder returns nil when history persistence is not configured.
func buildRecorder() contractx.Recorder {
	historyCfg := configx.MustLoad[historyx.Config]("HISTORY")
	if historyCfg.DSN == "" {
		log.Info().Msg("HISTORY_DSN not set, query history disabled")
		return nil
	}

	recorder, err := historyx.NewRecorder(context.Background(), *historyCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build history recorder")
	}
	return recorder
}
