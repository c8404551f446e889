package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/atorrez/fleetwatch/internal/webhook"
)

var (
	target    = flag.String("url", "http://localhost:8080/v1/webhooks/alerts", "Webhook endpoint to post to")
	secret    = flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "Signing secret (defaults to WEBHOOK_SECRET)")
	alertType = flag.String("type", "engine_fault", "Alert condition id for the sample event")
	vehicle   = flag.String("vehicle", "4021", "Vehicle name for the sample event")
)

func main() {
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Error: signing secret is required (set --secret or WEBHOOK_SECRET)")
		os.Exit(1)
	}

	// Build a sample alert delivery
	now := time.Now().UTC()
	payload := fmt.Sprintf(`{
  "eventId": "test-%d",
  "eventTime": %q,
  "eventType": "AlertIncident",
  "event": {
    "alertConditionId": %q,
    "alertConditionDescription": "Manually injected test alert",
    "vehicle": {"id": "0", "name": %q}
  }
}`, now.UnixNano(), now.Format(time.RFC3339), *alertType, *vehicle)

	// Sign it the way Samsara would
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	signature := webhook.Sign(*secret, timestamp, []byte(payload))

	req, err := http.NewRequest(http.MethodPost, *target, bytes.NewBufferString(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Samsara-Timestamp", timestamp)
	req.Header.Set("X-Samsara-Signature", signature)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error posting alert: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	reply, _ := io.ReadAll(resp.Body)

	fmt.Printf("✅ Posted %s alert for vehicle %s\n\n", *alertType, *vehicle)
	fmt.Printf("Response: %s %s\n", resp.Status, bytes.TrimSpace(reply))
	fmt.Println("\nPayload sent:")
	fmt.Println("---")
	fmt.Println(payload)
}
