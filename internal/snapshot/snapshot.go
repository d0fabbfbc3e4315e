package snapshot

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Band is a wireless frequency range with independent metrics per device.
type Band string

const (
	Band24 Band = "2.4"
	Band5  Band = "5"
	Band6  Band = "6"
)

// Bands lists every band in display order.
var Bands = []Band{Band24, Band5, Band6}

// BandMetric holds one cycle's readings for a single device and band. Absent
// upstream samples are recorded as zero.
type BandMetric struct {
	Utilization float64
	Clients     int
}

// Severity classifies an online access point by its worst band.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Fixed classification thresholds; not configurable at runtime.
const (
	criticalClients     = 100
	criticalUtilization = 70
	warningClients      = 50
	warningUtilization  = 50
)

// Row is the derived view of one access point for a single cycle. Online
// rows carry all band metrics, a total and a severity; offline rows carry
// only the reported status.
type Row struct {
	Serial       string
	Name         string
	Model        string
	Online       bool
	Status       string
	Bands        map[Band]BandMetric
	TotalClients int
	Severity     Severity
}

// Snapshot is one immutable, fully-computed view of all monitored access
// points. A new snapshot fully replaces the previous one.
type Snapshot struct {
	NetworkName  string
	GeneratedAt  time.Time
	Rows         []Row
	VersionToken string
}

// Classify derives the severity for a set of band metrics: critical when any
// band exceeds 100 clients or 70% utilization, warning when any band exceeds
// 50 clients or 50% utilization, normal otherwise.
func Classify(bands map[Band]BandMetric) Severity {
	for _, m := range bands {
		if m.Clients > criticalClients || m.Utilization > criticalUtilization {
			return SeverityCritical
		}
	}
	for _, m := range bands {
		if m.Clients > warningClients || m.Utilization > warningUtilization {
			return SeverityWarning
		}
	}
	return SeverityNormal
}

// Token derives the snapshot version token from the generation time and row
// count. It is a change signal for the polling page, not a content hash.
func Token(generatedAt time.Time, rowCount int) string {
	seed := fmt.Sprintf("%s_%d", generatedAt.Format("2006-01-02 15:04:05"), rowCount)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:12]
}
