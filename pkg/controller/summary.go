package controller

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render writes the report as a table.
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Stage", "Status", "Time", "Detail"})
	for i, s := range r.Stages {
		elapsed := ""
		if s.Status != StatusNotRun {
			elapsed = s.Duration.Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{i + 1, s.Name, s.Status, elapsed, s.Detail})
	}
	t.Render()
}

// Status returns the status of the named stage, or "" if it is unknown.
func (r *Report) Status(name string) string {
	for _, s := range r.Stages {
		if s.Name == name {
			return s.Status
		}
	}
	return ""
}
