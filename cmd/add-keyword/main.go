package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/vchukka/finsense/internal/config"
	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/store/postgres"
)

func main() {
	var (
		keyword = flag.String("keyword", "", "substring to match against transaction descriptions (required unless -list)")
		categ   = flag.String("category", "", "category assigned on match (required unless -list)")
		user    = flag.String("user", "", "user ID the rule belongs to (overrides DEFAULT_USER_ID)")
		global  = flag.Bool("global", false, "add the rule to the shared global set instead of one user")
		list    = flag.Bool("list", false, "list the effective rules in match order and exit")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.NewConsole(cfg.LogLevel)

	userID := cfg.DefaultUserID
	if *user != "" {
		userID = *user
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	rules := postgres.NewRuleRepository(db)

	if *list {
		if err := listRules(ctx, rules, userID); err != nil {
			log.Fatal().Err(err).Msg("Failed to list keyword rules")
		}
		return
	}

	if *keyword == "" {
		log.Fatal().Msg("-keyword is required")
	}
	if *categ == "" {
		log.Fatal().Msg("-category is required")
	}

	category, ok := domain.CanonicalCategory(*categ)
	if !ok || category == domain.CategoryUncategorized {
		log.Fatal().
			Str("category", *categ).
			Str("valid", strings.Join(domain.Categories(), ", ")).
			Msg("Unknown category")
	}

	if *global {
		err = rules.AddGlobalRule(ctx, *keyword, category)
	} else {
		err = rules.AddUserRule(ctx, userID, *keyword, category)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add keyword rule")
	}

	scope := fmt.Sprintf("user %s", userID)
	if *global {
		scope = "all users"
	}
	fmt.Printf("Rule added: %q -> %s (%s)\n", strings.ToLower(strings.TrimSpace(*keyword)), category, scope)
}

// listRules prints user rules first and global rules after, matching the
// precedence the categorizer applies.
func listRules(ctx context.Context, rules *postgres.RuleRepository, userID string) error {
	userRules, err := rules.UserRules(ctx, userID)
	if err != nil {
		return err
	}
	globalRules, err := rules.GlobalRules(ctx)
	if err != nil {
		return err
	}

	if len(userRules) == 0 && len(globalRules) == 0 {
		fmt.Println("No keyword rules configured.")
		return nil
	}

	if len(userRules) > 0 {
		fmt.Printf("User rules (%s):\n", userID)
		printRules(userRules)
	}
	if len(globalRules) > 0 {
		fmt.Println("Global rules:")
		printRules(globalRules)
	}
	return nil
}

func printRules(rules []domain.KeywordRule) {
	for _, r := range rules {
		fmt.Printf("  %3d. %q -> %s\n", r.Position, r.Keyword, r.Category)
	}
}
