package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/agent"
	"github.com/vchukka/finsense/internal/chat"
	"github.com/vchukka/finsense/internal/config"
	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/llm"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/notion"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/store/postgres"
	"github.com/vchukka/finsense/internal/summary"
)

func main() {
	var (
		user      = flag.String("user", "", "user ID (overrides DEFAULT_USER_ID)")
		agentMode = flag.Bool("agent", false, "answer through the full agent loop and print the memory log")
		startSync = flag.Bool("sync", true, "sync from Notion at startup when configured")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.NewConsole(cfg.LogLevel)

	userID := cfg.DefaultUserID
	if *user != "" {
		userID = *user
	}

	ctx := logger.WithContext(context.Background(), log)

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
	}
	if *agentMode && client == nil {
		log.Fatal().Msg("Agent mode needs GEMINI_API_KEY")
	}

	lines := pipeline.NewLineImportPipeline(ruleRepo, classifier, txRepo)
	summaries := summary.New(txRepo, profileRepo, parser)

	fmt.Println("FinSense chat")
	fmt.Println("Ask about your budget, income or spending. Type 'exit' to quit.")
	fmt.Println()

	if *startSync && cfg.NotionToken != "" {
		syncFromNotion(ctx, cfg, txRepo, lines, userID, log)
	}

	reader := bufio.NewReader(os.Stdin)

	profile, err := profileRepo.Profile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		fmt.Println("No profile found. Let's set one up first.")
		profile, err = onboard(reader, userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Onboarding failed")
		}
		if err := profileRepo.Upsert(ctx, profile); err != nil {
			log.Fatal().Err(err).Msg("Failed to save profile")
		}
		fmt.Println("Profile saved.")
	} else if err != nil {
		log.Fatal().Err(err).Msg("Failed to load profile")
	}
	printProfile(profile)

	services := agent.Services{
		Importer:     lines,
		Transactions: txRepo,
		Rules:        ruleRepo,
		Summaries:    summaries,
	}

	if *agentMode {
		runAgentLoop(ctx, reader, services, userID, client, log)
		return
	}

	var fallback chat.AgentRunner
	if client != nil {
		asker, err := agent.NewAsker(services, client)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build agent")
		}
		fallback = asker
	}
	router := chat.NewRouter(summaries, fallback)

	for {
		text, ok := prompt(reader)
		if !ok {
			return
		}
		fmt.Println(router.Reply(ctx, userID, text))
		fmt.Println()
	}
}

// syncFromNotion pulls the workspace once before the chat starts. A failed
// sync is not fatal, the chat still works on already-imported data.
func syncFromNotion(ctx context.Context, cfg *config.Config, txRepo *postgres.TransactionRepository,
	lines notion.Importer, userID string, log zerolog.Logger) {

	fmt.Println("Syncing from Notion...")

	syncer := notion.NewSyncer(notion.NewClient(cfg.NotionToken), txRepo, nil, lines, nil, notion.Config{
		TransactionsDB: cfg.NotionTransactionsDB,
		SyncLogDB:      cfg.NotionSyncLogDB,
		UserID:         userID,
	})

	syncCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	report, err := syncer.Sync(syncCtx)
	if err != nil {
		log.Warn().Err(err).Msg("Notion sync failed, continuing without synced data")
		return
	}
	fmt.Printf("Sync complete: %d imported, %d duplicates skipped.\n\n", report.Imported, report.Duplicates)
}

// runAgentLoop drives the chat through the full agent loop and prints the
// conversation memory after every run.
func runAgentLoop(ctx context.Context, reader *bufio.Reader, services agent.Services, userID string, client *llm.Client, log zerolog.Logger) {
	registry, err := agent.NewRegistry(agent.NewActions(services, userID)...)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid action registry")
	}
	ag := agent.New(agent.DefaultGoals(), registry, client)

	var mem *agent.Memory
	for {
		text, ok := prompt(reader)
		if !ok {
			return
		}

		mem, err = ag.Run(ctx, text, mem)
		if err != nil {
			log.Error().Err(err).Msg("Agent run failed")
		}

		fmt.Println("\nAgent memory log:")
		for _, e := range mem.Entries() {
			fmt.Printf("\n--- %s ---\n%s\n", strings.ToUpper(e.Kind), e.Content)
		}
		fmt.Println("\nEnd of run.")
		fmt.Println()
	}
}

// prompt reads the next non-empty line. ok is false once the user quits
// or stdin closes.
func prompt(reader *bufio.Reader) (text string, ok bool) {
	for {
		fmt.Print("you> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", false
		}
		text = strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit") {
			return "", false
		}
		return text, true
	}
}

func onboard(reader *bufio.Reader, userID string) (domain.UserProfile, error) {
	income, err := promptDecimal(reader, "Monthly income in euros: ")
	if err != nil {
		return domain.UserProfile{}, err
	}
	rent, err := promptDecimal(reader, "Monthly rent in euros (0 if none): ")
	if err != nil {
		return domain.UserProfile{}, err
	}
	utilities, err := promptDecimal(reader, "Monthly utilities in euros (0 if none): ")
	if err != nil {
		return domain.UserProfile{}, err
	}

	return domain.UserProfile{
		UserID:        userID,
		MonthlyIncome: income,
		Ratios:        domain.DefaultRatios(),
		Rent:          rent,
		Utilities:     utilities,
	}, nil
}

func promptDecimal(reader *bufio.Reader, question string) (decimal.Decimal, error) {
	for {
		fmt.Print(question)
		line, err := reader.ReadString('\n')
		if err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(strings.TrimSpace(line))
		if err != nil || d.IsNegative() {
			fmt.Println("Please enter a non-negative number.")
			continue
		}
		return d, nil
	}
}

func printProfile(p domain.UserProfile) {
	fmt.Println("\nProfile summary:")
	fmt.Printf("  Income:    €%s\n", p.MonthlyIncome.StringFixed(2))
	fmt.Printf("  Rent:      €%s\n", p.Rent.StringFixed(2))
	fmt.Printf("  Utilities: €%s\n", p.Utilities.StringFixed(2))
	fmt.Printf("  Fixed costs total: €%s\n", p.Rent.Add(p.Utilities).StringFixed(2))
	fmt.Println()
}
