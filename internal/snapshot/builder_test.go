package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meraki-ap-monitor/internal/meraki"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		bands    map[Band]BandMetric
		expected Severity
	}{
		{
			name: "critical on client count over 100",
			bands: map[Band]BandMetric{
				Band24: {Clients: 120},
				Band5:  {Clients: 10},
				Band6:  {},
			},
			expected: SeverityCritical,
		},
		{
			name: "critical on utilization over 70",
			bands: map[Band]BandMetric{
				Band24: {Utilization: 30},
				Band5:  {Utilization: 71},
				Band6:  {},
			},
			expected: SeverityCritical,
		},
		{
			name: "warning on client count over 50",
			bands: map[Band]BandMetric{
				Band24: {Clients: 60, Utilization: 40},
				Band5:  {Clients: 5},
				Band6:  {},
			},
			expected: SeverityWarning,
		},
		{
			name: "warning on utilization over 50",
			bands: map[Band]BandMetric{
				Band24: {},
				Band5:  {Utilization: 55},
				Band6:  {},
			},
			expected: SeverityWarning,
		},
		{
			name: "normal below all thresholds",
			bands: map[Band]BandMetric{
				Band24: {Clients: 10, Utilization: 40},
				Band5:  {Clients: 10, Utilization: 50},
				Band6:  {},
			},
			expected: SeverityNormal,
		},
		{
			name: "thresholds are strict inequalities",
			bands: map[Band]BandMetric{
				Band24: {Clients: 50, Utilization: 50},
				Band5:  {Clients: 100, Utilization: 70},
				Band6:  {},
			},
			expected: SeverityNormal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.bands))
		})
	}
}

func TestToken(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	assert.Equal(t, Token(t1, 5), Token(t1, 5), "identical inputs must produce identical tokens")
	assert.NotEqual(t, Token(t1, 5), Token(t2, 5), "a different timestamp must change the token")
	assert.NotEqual(t, Token(t1, 5), Token(t1, 6), "a different row count must change the token")
	assert.Len(t, Token(t1, 5), 12)
}

func buildFixtureInput() BuildInput {
	return BuildInput{
		NetworkName: "HQ",
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Devices: map[string]meraki.Device{
			"S-HIGH": {Serial: "S-HIGH", Name: "ap-high", Model: "MR57"},
			"S-MID":  {Serial: "S-MID", Name: "ap-mid", Model: "MR46"},
			"S-LOW":  {Serial: "S-LOW", Name: "ap-low", Model: "MR36"},
			"S-OFF2": {Serial: "S-OFF2", Name: "zz-basement", Model: "MR36"},
			"S-OFF1": {Serial: "S-OFF1", Name: "aa-attic", Model: "MR36"},
		},
		Statuses: []meraki.DeviceStatus{
			{Serial: "S-LOW", Status: "online", ProductType: "wireless"},
			{Serial: "S-HIGH", Status: "online", ProductType: "wireless"},
			{Serial: "S-WIRED", Status: "online", ProductType: "wired"},
			{Serial: "S-OFF2", Status: "offline", ProductType: "wireless"},
			{Serial: "S-MID", Status: "online", ProductType: "wireless"},
			{Serial: "S-OFF1", Status: "", ProductType: "wireless"},
		},
		Utilization: map[string]map[Band]float64{
			"S-HIGH": {Band24: 10, Band5: 80},
			"S-MID":  {Band5: 40},
			"S-LOW":  {Band5: 10},
		},
		Clients: map[string]map[Band]int{
			"S-HIGH": {Band24: 4, Band5: 12, Band6: 1},
			"S-MID":  {Band5: 3},
		},
	}
}

func TestBuildOrderingAndShape(t *testing.T) {
	snap := Build(buildFixtureInput())

	require.Len(t, snap.Rows, 5)

	// Online rows first, by descending 5 GHz utilization; offline rows
	// after, by ascending name.
	names := make([]string, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		names = append(names, row.Name)
	}
	assert.Equal(t, []string{"ap-high", "ap-mid", "ap-low", "aa-attic", "zz-basement"}, names)

	for _, row := range snap.Rows {
		if row.Online {
			require.NotNil(t, row.Bands, "online rows carry all band metrics")
			assert.Len(t, row.Bands, len(Bands))
			assert.NotEmpty(t, row.Severity)
		} else {
			assert.Nil(t, row.Bands, "offline rows carry no metrics")
			assert.Zero(t, row.TotalClients)
			assert.Empty(t, row.Severity)
			assert.NotEmpty(t, row.Status)
		}
	}
}

func TestBuildExcludesNonWireless(t *testing.T) {
	snap := Build(buildFixtureInput())

	for _, row := range snap.Rows {
		assert.NotEqual(t, "S-WIRED", row.Serial, "wired devices never appear in a snapshot")
	}
}

func TestBuildSerialsUnique(t *testing.T) {
	in := buildFixtureInput()
	// Duplicate status entries must not produce duplicate rows.
	in.Statuses = append(in.Statuses, meraki.DeviceStatus{Serial: "S-HIGH", Status: "online", ProductType: "wireless"})

	snap := Build(in)

	seen := make(map[string]bool)
	for _, row := range snap.Rows {
		assert.False(t, seen[row.Serial], "serial %s appears twice", row.Serial)
		seen[row.Serial] = true
	}
}

func TestBuildDerivedFields(t *testing.T) {
	snap := Build(buildFixtureInput())

	high := snap.Rows[0]
	assert.Equal(t, "S-HIGH", high.Serial)
	assert.Equal(t, 17, high.TotalClients)
	assert.Equal(t, SeverityCritical, high.Severity, "80%% utilization on 5 GHz crosses the critical threshold")

	mid := snap.Rows[1]
	assert.Equal(t, SeverityNormal, mid.Severity)
	assert.Equal(t, 3, mid.TotalClients)
	assert.Equal(t, 0.0, mid.Bands[Band24].Utilization, "absent samples read as zero")
}

func TestBuildOfflineStatusDefault(t *testing.T) {
	snap := Build(buildFixtureInput())

	for _, row := range snap.Rows {
		if row.Serial == "S-OFF1" {
			assert.Equal(t, "offline", row.Status, "an empty reported status defaults to offline")
		}
		if row.Serial == "S-OFF2" {
			assert.Equal(t, "offline", row.Status)
		}
	}
}

func TestBuildUnknownDeviceGetsPlaceholders(t *testing.T) {
	in := buildFixtureInput()
	in.Statuses = append(in.Statuses, meraki.DeviceStatus{Serial: "S-NEW", Status: "online", ProductType: "wireless"})

	snap := Build(in)

	var found bool
	for _, row := range snap.Rows {
		if row.Serial == "S-NEW" {
			found = true
			assert.Equal(t, meraki.DefaultDeviceName, row.Name)
			assert.Equal(t, meraki.UnknownModel, row.Model)
		}
	}
	assert.True(t, found)
}

func TestBuildStableTieOrder(t *testing.T) {
	in := BuildInput{
		NetworkName: "HQ",
		GeneratedAt: time.Now(),
		Devices: map[string]meraki.Device{
			"A": {Serial: "A", Name: "first", Model: "MR46"},
			"B": {Serial: "B", Name: "second", Model: "MR46"},
		},
		Statuses: []meraki.DeviceStatus{
			{Serial: "A", Status: "online", ProductType: "wireless"},
			{Serial: "B", Status: "online", ProductType: "wireless"},
		},
		Utilization: map[string]map[Band]float64{},
		Clients:     map[string]map[Band]int{},
	}

	snap := Build(in)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, "A", snap.Rows[0].Serial, "ties keep the original fetch order")
	assert.Equal(t, "B", snap.Rows[1].Serial)
}

func TestBuildVersionToken(t *testing.T) {
	in := buildFixtureInput()
	snap := Build(in)
	assert.Equal(t, Token(in.GeneratedAt, len(snap.Rows)), snap.VersionToken)
}
