package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/evanofslack/dnsctl/internal/provider"
	"github.com/evanofslack/dnsctl/internal/provider/cloudflare"
	"github.com/evanofslack/dnsctl/internal/provider/joker"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	registry, err := newRegistry()
	if err != nil {
		log.Fatalf("Failed to register DNS providers: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(registry).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRegistry registers every provider explicitly.
func newRegistry() (*provider.Registry, error) {
	registry := provider.NewRegistry()
	if err := registry.Register(joker.Name, joker.Factory); err != nil {
		return nil, err
	}
	if err := registry.Register(cloudflare.Name, cloudflare.Factory); err != nil {
		return nil, err
	}
	return registry, nil
}
