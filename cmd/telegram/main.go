package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vchukka/finsense/internal/agent"
	"github.com/vchukka/finsense/internal/chat"
	"github.com/vchukka/finsense/internal/config"
	"github.com/vchukka/finsense/internal/llm"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/store/postgres"
	"github.com/vchukka/finsense/internal/summary"
	"github.com/vchukka/finsense/internal/telegram"
)

func main() {
	flag.Parse()

	cfg := config.Load()
	log := logger.Component(logger.New(cfg.LogLevel), "telegram")

	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	txRepo := postgres.NewTransactionRepository(db)
	ruleRepo := postgres.NewRuleRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	var (
		client     *llm.Client
		classifier pipeline.Classifier
		parser     summary.QueryParser
	)
	if cfg.GeminiAPIKey != "" {
		client, err = llm.NewClient(ctx, llm.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.ModelName,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create model client")
		}
		classifier, parser = client, client
	} else {
		log.Warn().Msg("No Gemini API key configured - agent fallback is disabled")
	}

	summaries := summary.New(txRepo, profileRepo, parser)

	var fallback chat.AgentRunner
	if client != nil {
		asker, err := agent.NewAsker(agent.Services{
			Importer:     pipeline.NewLineImportPipeline(ruleRepo, classifier, txRepo),
			Transactions: txRepo,
			Rules:        ruleRepo,
			Summaries:    summaries,
		}, client)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build agent")
		}
		fallback = asker
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}

	listener := telegram.NewListener(bot, profileRepo, chat.NewRouter(summaries, fallback), log)
	if err := listener.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Listener stopped with error")
	}
}
