package snapshot

import (
	"sort"
	"time"

	"meraki-ap-monitor/internal/meraki"
)

// BuildInput carries everything one cycle fetched: the session-scoped
// inventory plus this cycle's statuses and band metrics.
type BuildInput struct {
	NetworkName string
	GeneratedAt time.Time
	Devices     map[string]meraki.Device
	Statuses    []meraki.DeviceStatus
	Utilization map[string]map[Band]float64
	Clients     map[string]map[Band]int
}

// Build produces exactly one snapshot from already-fetched data. It is a
// pure transform: no retries, no I/O. Non-wireless devices are dropped,
// online rows are ordered by descending 5 GHz utilization (stable on ties),
// offline rows follow sorted by name.
func Build(in BuildInput) *Snapshot {
	var online, offline []Row
	seen := make(map[string]bool, len(in.Statuses))

	for _, status := range in.Statuses {
		if !status.IsWireless() || status.Serial == "" || seen[status.Serial] {
			continue
		}
		seen[status.Serial] = true

		name, model := deviceLabels(in.Devices, status.Serial)
		if status.Status == "online" {
			row := Row{
				Serial: status.Serial,
				Name:   name,
				Model:  model,
				Online: true,
				Status: "online",
				Bands:  make(map[Band]BandMetric, len(Bands)),
			}
			for _, band := range Bands {
				m := BandMetric{
					Utilization: in.Utilization[status.Serial][band],
					Clients:     in.Clients[status.Serial][band],
				}
				row.Bands[band] = m
				row.TotalClients += m.Clients
			}
			row.Severity = Classify(row.Bands)
			online = append(online, row)
		} else {
			reported := status.Status
			if reported == "" {
				reported = "offline"
			}
			offline = append(offline, Row{
				Serial: status.Serial,
				Name:   name,
				Model:  model,
				Status: reported,
			})
		}
	}

	sort.SliceStable(online, func(i, j int) bool {
		return online[i].Bands[Band5].Utilization > online[j].Bands[Band5].Utilization
	})
	sort.SliceStable(offline, func(i, j int) bool {
		return offline[i].Name < offline[j].Name
	})

	rows := append(online, offline...)
	return &Snapshot{
		NetworkName:  in.NetworkName,
		GeneratedAt:  in.GeneratedAt,
		Rows:         rows,
		VersionToken: Token(in.GeneratedAt, len(rows)),
	}
}

func deviceLabels(devices map[string]meraki.Device, serial string) (name, model string) {
	d, ok := devices[serial]
	if !ok || d.Name == "" {
		name = meraki.DefaultDeviceName
	} else {
		name = d.Name
	}
	if !ok || d.Model == "" {
		model = meraki.UnknownModel
	} else {
		model = d.Model
	}
	return name, model
}
