package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/weatherapp/weatherapp/internal/presenter"
)

// WriterSink renders to a terminal or any other writer. Notices go to
// Errors so the last rendered block stays readable on Out.
type WriterSink struct {
	Out    io.Writer
	Errors io.Writer

	// JSON switches Render to one JSON document per line.
	JSON bool

	mu sync.Mutex
}

// Render implements Sink.
func (s *WriterSink) Render(fields presenter.DisplayFields) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.JSON {
		_ = json.NewEncoder(s.Out).Encode(fields)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", fields.Location)
	if fields.Icon != presenter.IconNone {
		fmt.Fprintf(&b, "  %-12s %s (%s)\n", "Status", fields.Status, fields.Icon)
	} else {
		fmt.Fprintf(&b, "  %-12s %s\n", "Status", fields.Status)
	}
	rows := [][2]string{
		{"Temperature", fields.Temperature},
		{"Feels like", fields.FeelsLike},
		{"Range", fields.MinTemperature + " / " + fields.MaxTemperature},
		{"Sunrise", fields.Sunrise},
		{"Sunset", fields.Sunset},
		{"Wind", fields.Wind},
		{"Pressure", fields.Pressure},
		{"Humidity", fields.Humidity},
		{"Visibility", fields.Visibility},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "  %-12s %s\n", row[0], row[1])
	}
	if len(fields.Conditions) > 1 {
		descriptions := make([]string, 0, len(fields.Conditions))
		for _, c := range fields.Conditions {
			descriptions = append(descriptions, c.Description)
		}
		fmt.Fprintf(&b, "  %-12s %s\n", "Conditions", strings.Join(descriptions, ", "))
	}

	_, _ = io.WriteString(s.Out, b.String())
}

// Notify implements Sink.
func (s *WriterSink) Notify(notice Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.Errors
	if w == nil {
		w = s.Out
	}
	if s.JSON {
		_ = json.NewEncoder(w).Encode(notice)
		return
	}
	fmt.Fprintf(w, "%s\n", notice.Message)
}
