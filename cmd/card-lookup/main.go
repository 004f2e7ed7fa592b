package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jimsug/mtg-signal-bot/internal/adapters/scryfall"
	"github.com/jimsug/mtg-signal-bot/internal/adapters/store"
	"github.com/jimsug/mtg-signal-bot/internal/core"
	"github.com/jimsug/mtg-signal-bot/internal/formatter"
	"github.com/jimsug/mtg-signal-bot/internal/logging"
	"github.com/jimsug/mtg-signal-bot/internal/parser"
	"go.uber.org/zap"
)

var (
	baseURL   = flag.String("base-url", "https://api.scryfall.com", "Card API base URL")
	userAgent = flag.String("user-agent", "MTGSignalBot/1.0 (github.com/jimsug/mtg-signal-bot)", "User-Agent header")
	timeout   = flag.Duration("timeout", 10*time.Second, "Request timeout")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: card-lookup [flags] <query>")
		fmt.Fprintln(os.Stderr, "  query uses bracket syntax without the brackets, e.g. 'Lightning Bolt', '?Tarmogoyf', 'Bolt|LEA'")
		os.Exit(2)
	}
	raw := strings.Join(flag.Args(), " ")

	queries := parser.ParseQueries("[[" + raw + "]]")
	if len(queries) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to look up")
		os.Exit(2)
	}
	query := queries[0]

	resolver := scryfall.NewClient(*baseURL, *userAgent, 100*time.Millisecond, *timeout, 15*time.Second, logger)
	memStore := store.NewMemoryStore(24*time.Hour, time.Hour, logger)
	defer memStore.Stop()

	service := core.NewLookupService(resolver, memStore, memStore, memStore, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payload, err := service.Lookup(ctx, "cli", "", query)
	if err != nil {
		logger.Fatal("Lookup failed", zap.Error(err))
	}

	card, err := formatter.ParseCard(payload)
	if err != nil {
		logger.Fatal("Failed to decode card", zap.Error(err))
	}

	var text, imageURL string
	switch query.Flag {
	case core.FlagImage:
		text, imageURL = formatter.Image(card)
	case core.FlagRulings:
		rulingsPayload, err := service.Rulings(ctx, card.ID)
		if err != nil {
			logger.Fatal("Rulings lookup failed", zap.Error(err))
		}
		rulings, err := formatter.ParseRulings(rulingsPayload)
		if err != nil {
			logger.Fatal("Failed to decode rulings", zap.Error(err))
		}
		text = formatter.Rulings(card, rulings)
	case core.FlagLegality:
		text = formatter.Legality(card)
	case core.FlagPrice:
		text = formatter.Price(card)
	default:
		text, imageURL = formatter.Default(card)
	}

	fmt.Println(text)
	if imageURL != "" {
		fmt.Println("\nImage:", imageURL)
	}
}
