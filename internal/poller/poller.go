// Package poller runs the recurring fetch → build → render → publish cycle.
package poller

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"meraki-ap-monitor/config"
	"meraki-ap-monitor/internal/meraki"
	"meraki-ap-monitor/internal/report"
	"meraki-ap-monitor/internal/snapshot"
	"meraki-ap-monitor/internal/store"
)

// State identifies where the polling loop currently is in its cycle.
type State string

const (
	StateFetching   State = "fetching"
	StateBuilding   State = "building"
	StatePublishing State = "publishing"
	StateSleeping   State = "sleeping"
	StateErrored    State = "errored"
)

// Upstream is the slice of the metrics client the recurring cycle needs.
// The inventory fetch happens once at startup, outside the loop.
type Upstream interface {
	ListDeviceStatuses(ctx context.Context, orgID, networkID string) ([]meraki.DeviceStatus, error)
	BandUtilization(ctx context.Context, networkID, serial, band string, t0, t1 time.Time) (float64, bool, error)
	BandClientCount(ctx context.Context, networkID, serial, band string, t0, t1 time.Time) (int, bool, error)
}

// Service orchestrates the polling loop. It is the sole writer of the
// snapshot store and the only component that talks to the upstream API.
type Service struct {
	cfg         *config.Config
	client      Upstream
	store       store.Store
	devices     map[string]meraki.Device
	orgID       string
	networkID   string
	networkName string

	mu    sync.Mutex
	state State
}

// NewService creates the polling service. devices is the session-scoped
// inventory fetched once at startup.
func NewService(cfg *config.Config, client Upstream, s store.Store, devices map[string]meraki.Device, orgID, networkID, networkName string) *Service {
	return &Service{
		cfg:         cfg,
		client:      client,
		store:       s,
		devices:     devices,
		orgID:       orgID,
		networkID:   networkID,
		networkName: networkName,
		state:       StateFetching,
	}
}

// State returns the loop's current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes poll cycles until the context is cancelled. A failed cycle is
// logged and retried after the penalty interval; the loop never terminates
// itself on a transient error, and the last published document stays
// servable throughout.
func (s *Service) Run(ctx context.Context) {
	log.Println("Starting polling loop...")

	for {
		wait := s.cfg.Poller.Interval
		if err := s.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("Polling loop shutting down.")
				return
			}
			s.setState(StateErrored)
			wait = s.cfg.Poller.Penalty
			log.Printf("Poll cycle failed: %v. Retrying in %s.", err, wait)
		}

		s.setState(StateSleeping)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Polling loop shutting down.")
			return
		case <-timer.C:
		}
	}
}

// PollOnce performs a single cycle. It either publishes a complete new
// snapshot or leaves the store untouched; there is no partial publication.
func (s *Service) PollOnce(ctx context.Context) error {
	s.setState(StateFetching)
	now := time.Now()

	statuses, err := s.client.ListDeviceStatuses(ctx, s.orgID, s.networkID)
	if err != nil {
		return fmt.Errorf("device statuses: %w", err)
	}

	var onlineSerials []string
	for _, status := range statuses {
		if status.IsWireless() && status.Status == "online" {
			onlineSerials = append(onlineSerials, status.Serial)
		}
	}
	log.Printf("Fetched %d device statuses (%d wireless online)", len(statuses), len(onlineSerials))

	utilization, clients, err := s.collectBandMetrics(ctx, onlineSerials, now)
	if err != nil {
		return fmt.Errorf("band metrics: %w", err)
	}

	s.setState(StateBuilding)
	snap := snapshot.Build(snapshot.BuildInput{
		NetworkName: s.networkName,
		GeneratedAt: now,
		Devices:     s.devices,
		Statuses:    statuses,
		Utilization: utilization,
		Clients:     clients,
	})

	s.setState(StatePublishing)
	doc, err := report.Render(snap)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	s.store.Publish(snap.VersionToken, doc)

	// Durable fallback view, independent of the HTTP layer.
	if err := os.WriteFile(s.cfg.Report.OutputFile, doc, 0o644); err != nil {
		log.Printf("Warning: failed to write %s: %v", s.cfg.Report.OutputFile, err)
	}

	log.Printf("Published snapshot %s (%d rows)", snap.VersionToken, len(snap.Rows))
	return nil
}
