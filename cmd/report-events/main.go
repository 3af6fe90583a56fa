package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/STARREPORTS/internal/events"
	natsclient "github.com/STARREPORTS/internal/nats"
)

func main() {
	url := flag.String("nats", "nats://127.0.0.1:4222", "NATS URL of the StarReports service")
	subject := flag.String("subject", natsclient.SubjectAllChanges, "Subject to follow, e.g. starreports.report.*")
	replay := flag.Bool("replay", false, "Replay retained events from the change stream before following")
	stats := flag.Bool("stats", false, "Print store statistics and exit")
	jsonOutput := flag.Bool("json", false, "Print raw JSON events")
	flag.Parse()

	client, err := natsclient.NewClient(*url, "report-events")
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *url, err)
	}
	defer client.Close()

	if *stats {
		var s natsclient.StatsMessage
		if err := client.RequestJSON(natsclient.SubjectStats, struct{}{}, &s, 5*time.Second); err != nil {
			log.Fatalf("Stats request failed: %v", err)
		}
		json.NewEncoder(os.Stdout).Encode(s)
		return
	}

	handler := func(msg *natsclient.Message) {
		fmt.Println(formatEvent(msg, *jsonOutput))
	}

	if *replay {
		streams, err := natsclient.NewStreamManager(client.RawConn())
		if err != nil {
			log.Fatalf("JetStream unavailable: %v", err)
		}
		if _, err := streams.Replay(*subject, handler); err != nil {
			log.Fatalf("Failed to replay %s: %v", *subject, err)
		}
	} else if _, err := client.Subscribe(*subject, handler); err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", *subject, err)
	}

	log.Printf("[EVENTS] Following %s on %s. Press Ctrl+C to stop.", *subject, *url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// formatEvent renders one change event as a log line
func formatEvent(msg *natsclient.Message, raw bool) string {
	if raw {
		return strings.TrimSpace(string(msg.Data))
	}
	var e events.Event
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		return fmt.Sprintf("%s (undecodable: %v)", msg.Subject, err)
	}
	line := fmt.Sprintf("%s  %-32s %s", e.CreatedAt.Local().Format("15:04:05"), msg.Subject, e.EntityID)
	if op, ok := e.Payload["op"]; ok {
		line += fmt.Sprintf("  (%v)", op)
	}
	if reason, ok := e.Payload["error"]; ok {
		line += fmt.Sprintf("  error: %v", reason)
	}
	return line
}
