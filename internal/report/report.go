// Package report turns a snapshot into the self-refreshing HTML document.
// The page asset is fixed; only snapshot data is injected, and name/model
// fields go through html/template's contextual escaping.
package report

import (
	"bytes"
	_ "embed"
	"html/template"
	"strconv"
	"strings"

	"meraki-ap-monitor/internal/snapshot"
)

//go:embed page.html.tmpl
var pageSource string

var page = template.Must(template.New("page").Parse(pageSource))

type rowView struct {
	Name         string
	Model        string
	RowClass     string
	Offline      bool
	Status       string
	TotalClients string
	Util24       string
	Clients24    string
	Util5        string
	Clients5     string
	Util6        string
	Clients6     string
}

type pageView struct {
	NetworkName string
	LastUpdated string
	TotalCount  int
	Rows        []rowView
}

// Render produces the document bytes for a snapshot. The only failure path
// is template execution, which indicates a malformed snapshot.
func Render(s *snapshot.Snapshot) ([]byte, error) {
	view := pageView{
		NetworkName: s.NetworkName,
		LastUpdated: s.GeneratedAt.Format("2006-01-02 15:04:05"),
		TotalCount:  len(s.Rows),
		Rows:        make([]rowView, 0, len(s.Rows)),
	}

	for _, row := range s.Rows {
		view.Rows = append(view.Rows, newRowView(row))
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newRowView(row snapshot.Row) rowView {
	if !row.Online {
		// Offline rows carry no metrics at all, which is a different
		// absence-state than a healthy zero reading.
		return rowView{
			Name:      row.Name,
			Model:     row.Model,
			RowClass:  "status-offline",
			Offline:   true,
			Status:    strings.ToUpper(row.Status),
			Util24:    "-",
			Clients24: "-",
			Util5:     "-",
			Clients5:  "-",
			Util6:     "-",
			Clients6:  "-",
		}
	}

	v := rowView{
		Name:         row.Name,
		Model:        row.Model,
		TotalClients: strconv.Itoa(row.TotalClients),
		Util24:       formatUtil(row.Bands[snapshot.Band24].Utilization),
		Clients24:    strconv.Itoa(row.Bands[snapshot.Band24].Clients),
		Util5:        formatUtil(row.Bands[snapshot.Band5].Utilization),
		Clients5:     strconv.Itoa(row.Bands[snapshot.Band5].Clients),
		Util6:        formatUtil(row.Bands[snapshot.Band6].Utilization),
		Clients6:     strconv.Itoa(row.Bands[snapshot.Band6].Clients),
	}
	switch row.Severity {
	case snapshot.SeverityCritical:
		v.RowClass = "status-red"
	case snapshot.SeverityWarning:
		v.RowClass = "status-orange"
	}
	return v
}

func formatUtil(u float64) string {
	return strconv.FormatFloat(u, 'g', -1, 64)
}
