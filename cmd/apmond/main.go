package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"meraki-ap-monitor/config"
	"meraki-ap-monitor/internal/api"
	"meraki-ap-monitor/internal/meraki"
	"meraki-ap-monitor/internal/poller"
	"meraki-ap-monitor/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "apmond ", log.LstdFlags)

	// Load configuration; a missing file falls back to defaults plus the
	// org.txt / token.txt credential files.
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
		}
		logger.Printf("no configuration file at %s, using defaults", configPath)
		cfg = config.Default()
	} else {
		logger.Printf("configuration loaded successfully from %s", configPath)
	}

	orgID := resolveCredential(cfg.Meraki.OrgID, cfg.Meraki.OrgIDFile)
	if orgID == "" {
		logger.Fatalf("organization ID must be configured: set meraki.org_id or save it to %s", cfg.Meraki.OrgIDFile)
	}
	apiKey := resolveCredential(cfg.Meraki.APIKey, cfg.Meraki.APIKeyFile)
	if apiKey == "" {
		logger.Fatalf("API key must be configured: set meraki.api_key or save it to %s", cfg.Meraki.APIKeyFile)
	}

	client := meraki.New(cfg.Meraki.BaseURL, apiKey, cfg.Meraki.RateLimitPerSec)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	networks, err := client.ListNetworks(ctx, orgID)
	if err != nil {
		logger.Fatalf("failed to fetch networks: %v", err)
	}
	if len(networks) == 0 {
		logger.Fatalf("no networks found in the organization")
	}

	networkID, networkName, err := selectNetwork(networks, cfg.Meraki.Network, os.Stdin)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Printf("monitoring network %q (%s)", networkName, networkID)

	// Mandatory inventory fetch; no snapshot can exist without device
	// identity, so failure here is fatal.
	devices, err := client.ListDevices(ctx, networkID)
	if err != nil {
		logger.Fatalf("failed to fetch device inventory: %v", err)
	}
	logger.Printf("loaded %d devices", len(devices))

	appStore := store.New()

	// Run the polling loop in the background
	pollerSvc := poller.NewService(cfg, client, appStore, devices, orgID, networkID, networkName)
	go pollerSvc.Run(ctx)

	// Initialize router
	router := api.NewRouter(appStore, rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateBurst)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Printf("Server gracefully stopped. Last report saved to %s", cfg.Report.OutputFile)
}

// resolveCredential prefers the inline value and falls back to reading a
// local file, stripped of surrounding whitespace and newlines.
func resolveCredential(inline, file string) string {
	if v := strings.TrimSpace(inline); v != "" {
		return v
	}
	if file == "" {
		return ""
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// selectNetwork resolves the configured network name, or prompts for one
// when the configuration leaves it empty.
func selectNetwork(networks []meraki.Network, preferred string, in io.Reader) (id, name string, err error) {
	if preferred == "" {
		fmt.Println("Available networks:")
		for i, n := range networks {
			fmt.Printf("%d. %s\n", i+1, n.Name)
		}
		fmt.Print("\nEnter the exact network name from the list above: ")

		scanner := bufio.NewScanner(in)
		if scanner.Scan() {
			preferred = strings.TrimSpace(scanner.Text())
		}
	}

	for _, n := range networks {
		if n.Name == preferred {
			return n.ID, n.Name, nil
		}
	}
	return "", "", fmt.Errorf("network %q not found in the organization", preferred)
}
