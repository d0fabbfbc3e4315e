package meraki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const timeLayout = "2006-01-02T15:04:05Z"

// UpstreamError reports a failed call to the Dashboard API: either a
// transport failure (StatusCode zero, Err set) or a non-2xx response.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("meraki: %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("meraki: %s: unexpected status %d", e.Endpoint, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client wraps the Meraki Dashboard API v1 endpoints the monitor needs. All
// calls share one rate limiter so the per-band fan-out stays inside the
// upstream per-organization request budget. Band/metric combinations that
// the hardware rejected with a 4xx are remembered and skipped on later
// cycles.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	gaps    *cache.Cache
}

// New creates a Dashboard API client. An empty baseURL selects the public
// endpoint; tests point it at a local fixture server.
func New(baseURL, apiKey string, reqPerSec float64) *Client {
	if baseURL == "" {
		baseURL = "https://api.meraki.com/api/v1"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), 1),
		gaps:    cache.New(cache.NoExpiration, 0),
	}
}

// ListNetworks returns every network in the organization.
func (c *Client) ListNetworks(ctx context.Context, orgID string) ([]Network, error) {
	var networks []Network
	path := "/organizations/" + url.PathEscape(orgID) + "/networks"
	if err := c.get(ctx, path, nil, &networks); err != nil {
		return nil, err
	}
	return networks, nil
}

// ListDevices fetches the device inventory for a network once, keyed by
// serial. Absent names and models get placeholders, never empty strings.
func (c *Client) ListDevices(ctx context.Context, networkID string) (map[string]Device, error) {
	var raw []Device
	path := "/networks/" + url.PathEscape(networkID) + "/devices"
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}

	devices := make(map[string]Device, len(raw))
	for _, d := range raw {
		if d.Serial == "" {
			continue
		}
		if d.Name == "" {
			d.Name = DefaultDeviceName
		}
		if d.Model == "" {
			d.Model = UnknownModel
		}
		devices[d.Serial] = d
	}
	return devices, nil
}

// ListDeviceStatuses returns the current status of every device in the
// network, wireless or not. Filtering to wireless is the caller's job.
func (c *Client) ListDeviceStatuses(ctx context.Context, orgID, networkID string) ([]DeviceStatus, error) {
	q := url.Values{}
	q.Set("networkIds[]", networkID)

	var statuses []DeviceStatus
	path := "/organizations/" + url.PathEscape(orgID) + "/devices/statuses"
	if err := c.get(ctx, path, q, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

type utilizationPoint struct {
	Utilization      *float64 `json:"utilization"`
	UtilizationTotal *float64 `json:"utilizationTotal"`
}

type clientCountPoint struct {
	ClientCount *int `json:"clientCount"`
}

// BandUtilization returns the most recent channel utilization sample for one
// device and band within [t0, t1]. The second return value is false when no
// sample exists: an empty series, or a band the radio does not support
// (reported upstream as a 4xx and cached so the call is not repeated).
func (c *Client) BandUtilization(ctx context.Context, networkID, serial, band string, t0, t1 time.Time) (float64, bool, error) {
	const metric = "utilization"
	if c.hasGap(serial, band, metric) {
		return 0, false, nil
	}

	q := historyQuery(serial, band, t0, t1)
	q.Set("autoResolution", "true")

	var points []utilizationPoint
	path := "/networks/" + url.PathEscape(networkID) + "/wireless/channelUtilizationHistory"
	if err := c.get(ctx, path, q, &points); err != nil {
		if isCapabilityGap(err) {
			c.markGap(serial, band, metric)
			return 0, false, nil
		}
		return 0, false, err
	}

	if len(points) == 0 {
		return 0, false, nil
	}
	last := points[len(points)-1]
	switch {
	case last.Utilization != nil:
		return *last.Utilization, true, nil
	case last.UtilizationTotal != nil:
		return *last.UtilizationTotal, true, nil
	}
	return 0, false, nil
}

// BandClientCount returns the most recent client count sample for one device
// and band within [t0, t1], with the same absence policy as BandUtilization.
func (c *Client) BandClientCount(ctx context.Context, networkID, serial, band string, t0, t1 time.Time) (int, bool, error) {
	const metric = "clientCount"
	if c.hasGap(serial, band, metric) {
		return 0, false, nil
	}

	q := historyQuery(serial, band, t0, t1)
	q.Set("resolution", "300")

	var points []clientCountPoint
	path := "/networks/" + url.PathEscape(networkID) + "/wireless/clientCountHistory"
	if err := c.get(ctx, path, q, &points); err != nil {
		if isCapabilityGap(err) {
			c.markGap(serial, band, metric)
			return 0, false, nil
		}
		return 0, false, err
	}

	if len(points) == 0 || points[len(points)-1].ClientCount == nil {
		return 0, false, nil
	}
	return *points[len(points)-1].ClientCount, true, nil
}

func historyQuery(serial, band string, t0, t1 time.Time) url.Values {
	q := url.Values{}
	q.Set("t0", t0.UTC().Format(timeLayout))
	q.Set("t1", t1.UTC().Format(timeLayout))
	q.Set("deviceSerial", serial)
	q.Set("band", band)
	return q
}

// isCapabilityGap reports whether the error is a 4xx band-history response,
// the upstream's way of saying the device lacks that radio.
func isCapabilityGap(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode >= 400 && ue.StatusCode < 500
}

func gapKey(serial, band, metric string) string {
	return serial + "|" + band + "|" + metric
}

func (c *Client) hasGap(serial, band, metric string) bool {
	_, found := c.gaps.Get(gapKey(serial, band, metric))
	return found
}

func (c *Client) markGap(serial, band, metric string) {
	c.gaps.SetDefault(gapKey(serial, band, metric), true)
}

// get performs a rate-limited GET against the Dashboard API and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Cisco-Meraki-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return nil
}
