package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/atorrez/fleetwatch/internal/bot"
	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/logger"
	"github.com/atorrez/fleetwatch/internal/maintenance"
	"github.com/atorrez/fleetwatch/internal/notifier"
	"github.com/atorrez/fleetwatch/internal/samsara"
)

var (
	botToken     = flag.String("bot-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token (or env: TELEGRAM_BOT_TOKEN)")
	chatID       = flag.Int64("chat-id", envInt64("DEFAULT_CHAT_ID"), "Telegram chat ID (or env: DEFAULT_CHAT_ID)")
	topicID      = flag.Int("topic-id", 0, "Forum topic to post into (optional)")
	samsaraToken = flag.String("samsara-token", os.Getenv("SAMSARA_API_TOKEN"), "Samsara API token (or env: SAMSARA_API_TOKEN)")
	baseURL      = flag.String("base-url", os.Getenv("SAMSARA_BASE_URL"), "Samsara API base URL override (or env: SAMSARA_BASE_URL)")
	sheetURL     = flag.String("sheet-url", os.Getenv("MAINTENANCE_SHEET_URL"), "Published maintenance sheet URL (or env: MAINTENANCE_SHEET_URL)")
	dueDays      = flag.Int("due-days", 14, "Include maintenance due within N days")
	dueMiles     = flag.Int64("due-miles", 2000, "Include maintenance due within N miles of the current odometer")
	dryRun       = flag.Bool("dry-run", false, "Print the report without sending")
)

func envInt64(key string) int64 {
	n, _ := strconv.ParseInt(os.Getenv(key), 10, 64)
	return n
}

func main() {
	flag.Parse()

	if *samsaraToken == "" {
		fmt.Fprintf(os.Stderr, "Error: Samsara token is required (use --samsara-token or SAMSARA_API_TOKEN env var)\n")
		os.Exit(1)
	}
	if !*dryRun {
		if *botToken == "" {
			fmt.Fprintf(os.Stderr, "Error: bot token is required (use --bot-token or TELEGRAM_BOT_TOKEN env var)\n")
			os.Exit(1)
		}
		if *chatID == 0 {
			fmt.Fprintf(os.Stderr, "Error: chat ID is required (use --chat-id or DEFAULT_CHAT_ID env var)\n")
			os.Exit(1)
		}
	}

	// Keep cron output to the progress lines below; internals only log
	// real problems.
	if err := logger.Init(logger.Config{Level: "warn", Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway := samsara.New(samsara.Config{
		Token:   *samsaraToken,
		BaseURL: *baseURL,
	})
	release := gateway.Acquire()
	defer release()

	vehicles := gateway.GetVehicles(ctx, true)
	if len(vehicles) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no vehicles available from the telemetry API\n")
		os.Exit(1)
	}
	fmt.Printf("Fetched %d vehicles\n", len(vehicles))

	ids := make([]string, len(vehicles))
	for i, v := range vehicles {
		ids[i] = v.ID
	}
	readings := gateway.GetOdometerStats(ctx, ids)
	fmt.Printf("Fetched %d odometer readings\n", len(readings))

	due := dueMaintenance(ctx, vehicles, readings)

	digest := buildDigest(vehicles, readings, due)

	if *dryRun {
		fmt.Printf("DRY RUN MODE - would send to chat %d:\n\n%s\n", *chatID, digest)
		os.Exit(0)
	}

	api, err := tgbotapi.NewBotAPI(*botToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing Telegram client: %v\n", err)
		os.Exit(1)
	}

	send := notifier.NewTelegram(api, logger.Named("notifier"))
	if err := send.Send(ctx, notifier.Message{ChatID: *chatID, TopicID: *topicID, Text: digest}); err != nil {
		fmt.Fprintf(os.Stderr, "Error sending report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sent fleet report to chat %d\n", *chatID)
}

// dueMaintenance reads the shop sheet when one is configured. Sheet
// trouble degrades the report instead of failing it.
func dueMaintenance(ctx context.Context, vehicles []fleet.Vehicle, readings map[string]fleet.OdometerReading) []maintenance.Record {
	if *sheetURL == "" {
		return nil
	}

	byUnit := make(map[string]int64, len(readings))
	for _, v := range vehicles {
		if r, ok := readings[v.ID]; ok {
			byUnit[strings.TrimSpace(v.Name)] = r.Miles
		}
	}
	lookup := func(unit string) (int64, bool) {
		miles, ok := byUnit[strings.TrimSpace(unit)]
		return miles, ok
	}

	tracker := maintenance.New(*sheetURL, logger.Named("maintenance"))
	due, err := tracker.DueSoon(ctx, *dueDays, *dueMiles, lookup)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: maintenance sheet unavailable: %v\n", err)
		return nil
	}
	fmt.Printf("Found %d maintenance items due\n", len(due))
	return due
}

// buildDigest assembles the report message from the same formatters the
// bot uses, so cron reports and /odometer read alike.
func buildDigest(vehicles []fleet.Vehicle, readings map[string]fleet.OdometerReading, due []maintenance.Record) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("📋 <b>Fleet report</b> (%s)\n", time.Now().Format("Jan 02")))
	msg.WriteString(fmt.Sprintf("%d vehicles tracked\n\n", len(vehicles)))

	msg.WriteString(bot.FormatOdometerDigest(vehicles, readings))

	if len(due) > 0 {
		msg.WriteString("\n\n")
		msg.WriteString(bot.FormatMaintenance(fmt.Sprintf("due within %d days or %d mi", *dueDays, *dueMiles), due))
	}

	return msg.String()
}
