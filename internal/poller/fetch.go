package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meraki-ap-monitor/internal/snapshot"
)

// bandResults accumulates per-serial metrics from the fetch workers. The
// first upstream error wins and fails the whole stage; capability gaps are
// not errors and simply leave the metric absent.
type bandResults struct {
	mu          sync.Mutex
	utilization map[string]map[snapshot.Band]float64
	clients     map[string]map[snapshot.Band]int
	err         error
}

func (r *bandResults) record(serial string, util map[snapshot.Band]float64, clients map[snapshot.Band]int) {
	r.mu.Lock()
	r.utilization[serial] = util
	r.clients[serial] = clients
	r.mu.Unlock()
}

func (r *bandResults) fail(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

func (r *bandResults) failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil
}

// collectBandMetrics fans out the devices x bands x 2 metric queries over a
// fixed-size worker pool. The upstream exposes no batched per-device-per-band
// endpoint, so the multiplied call volume is inherent; the pool size and the
// client's shared rate limiter bound it. All results for the cycle are
// collected before building begins.
func (s *Service) collectBandMetrics(ctx context.Context, serials []string, now time.Time) (map[string]map[snapshot.Band]float64, map[string]map[snapshot.Band]int, error) {
	t1 := now.UTC()
	t0 := t1.Add(-s.cfg.Poller.Window)

	results := &bandResults{
		utilization: make(map[string]map[snapshot.Band]float64, len(serials)),
		clients:     make(map[string]map[snapshot.Band]int, len(serials)),
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Meraki.FetchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for serial := range jobs {
				if results.failed() || ctx.Err() != nil {
					continue
				}
				s.fetchSerial(ctx, serial, t0, t1, results)
			}
		}()
	}

	for _, serial := range serials {
		select {
		case jobs <- serial:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if results.err != nil {
		return nil, nil, results.err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return results.utilization, results.clients, nil
}

// fetchSerial collects both metrics for every band of one device.
func (s *Service) fetchSerial(ctx context.Context, serial string, t0, t1 time.Time, results *bandResults) {
	utilization := make(map[snapshot.Band]float64, len(snapshot.Bands))
	clients := make(map[snapshot.Band]int, len(snapshot.Bands))

	for _, band := range snapshot.Bands {
		util, ok, err := s.client.BandUtilization(ctx, s.networkID, serial, string(band), t0, t1)
		if err != nil {
			results.fail(fmt.Errorf("utilization for %s band %s: %w", serial, band, err))
			return
		}
		if ok {
			utilization[band] = util
		}

		count, ok, err := s.client.BandClientCount(ctx, s.networkID, serial, string(band), t0, t1)
		if err != nil {
			results.fail(fmt.Errorf("client count for %s band %s: %w", serial, band, err))
			return
		}
		if ok {
			clients[band] = count
		}
	}

	results.record(serial, utilization, clients)
}
