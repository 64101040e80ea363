package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ticket-relay/backend/internal/config"
	"github.com/ticket-relay/backend/internal/health"
	"github.com/ticket-relay/backend/internal/pipeline"
	"github.com/ticket-relay/backend/internal/relay"
	"github.com/ticket-relay/backend/internal/ticket"
)

// counters adapts the session store and registry to the health handler.
type counters struct {
	sessions *relay.SessionStore
	registry *relay.Registry
}

func (c counters) ActiveCount() int { return c.sessions.ActiveCount() }
func (c counters) ClientCount() int { return c.registry.ClientCount() }

func main() {
	mockMode := flag.Bool("mock", false, "Use a scripted pipeline and seeded in-memory tickets")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	var store ticket.Store
	var pipe pipeline.Pipeline

	if *mockMode {
		log.Println("Starting in mock mode (scripted pipeline)")
		mem := ticket.NewMemStore()
		seedDemoTickets(mem)
		store = mem
		pipe = &pipeline.Scripted{Chunks: pipeline.DemoScript(), Delay: 500 * time.Millisecond}
	} else {
		switch cfg.Storage.Driver {
		case "libsql":
			sqlStore, err := ticket.OpenSQL(cfg.Storage.URL, cfg.Storage.AuthToken)
			if err != nil {
				log.Fatalf("Failed to open ticket storage: %v", err)
			}
			defer sqlStore.Close()
			store = sqlStore
		default:
			store = ticket.NewMemStore()
		}

		if cfg.Pipeline.URL == "" {
			log.Fatal("pipeline.url is required outside mock mode")
		}
		pipe = &pipeline.HTTPPipeline{URL: cfg.Pipeline.URL}
	}

	registry := relay.NewRegistry(cfg.Limits.MaxConnections, cfg.Limits.SendBuffer)
	sessions := relay.NewSessionStore(cfg.Limits.MaxClosedSessions)
	classifier := relay.NewClassifier(cfg.Pipeline.Stages)
	orchestrator := relay.NewOrchestrator(registry, store, pipe, sessions, classifier, cfg.Pipeline.Timeout)
	server := relay.NewServer(registry, orchestrator, sessions, cfg.Auth.AllowedOrigins, cfg.Auth.Token)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)
	ticket.NewHandler(store).SetupRoutes(mux)
	health.NewHandler(counters{sessions: sessions, registry: registry}).SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	if err := relay.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func seedDemoTickets(store *ticket.MemStore) {
	demos := []ticket.Ticket{
		{
			Title:              "Add retry to payment webhook",
			Description:        "Webhook deliveries fail permanently on transient 5xx responses.",
			AcceptanceCriteria: "Failed deliveries retry with exponential backoff up to 5 attempts.",
		},
		{
			Title:              "Expose team directory search",
			Description:        "Clients need to look up team ownership for a given service.",
			AcceptanceCriteria: "GET /teams?service= returns the owning team and its members.",
		},
	}
	for _, d := range demos {
		if _, err := store.Create(context.Background(), d); err != nil {
			log.Printf("seed ticket: %v", err)
		}
	}
}
