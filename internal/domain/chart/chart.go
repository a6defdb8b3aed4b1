// Package chart provides vibe charts: timed arrow note events loaded from the
// JSON files produced by the chart converter.
package chart

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/domain/timing"
)

// MaxTitleLength is the title width of the device display.
const MaxTitleLength = 20

// Event is one note change at an offset from the chart start.
type Event struct {
	Timestamp uint32 `json:"timestamp"` // Microseconds from the first event
	NoteBits  uint8  `json:"note_bits"` // High nibble: change mask, low nibble: values
}

// Offset returns the event time on the device clock, truncated to whole
// milliseconds.
func (e Event) Offset() timing.Duration {
	return timing.Duration(e.Timestamp / 1000)
}

// Chart is a titled list of events in playback order.
type Chart struct {
	Title  string  `json:"title" validate:"required,max=20"`
	Events []Event `json:"events" validate:"required,min=1"`
}

// Duration returns the offset of the last event.
func (c *Chart) Duration() timing.Duration {
	if len(c.Events) == 0 {
		return 0
	}
	return c.Events[len(c.Events)-1].Offset()
}

// Validate validates the chart.
func (c *Chart) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	for i := 1; i < len(c.Events); i++ {
		if c.Events[i].Timestamp < c.Events[i-1].Timestamp {
			return errors.Newf("event %d at %dus precedes event %d at %dus",
				i, c.Events[i].Timestamp, i-1, c.Events[i-1].Timestamp)
		}
	}
	return nil
}

// Parse decodes and validates a chart.
func Parse(data []byte) (*Chart, error) {
	var c Chart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to parse chart")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid chart %q", c.Title)
	}
	return &c, nil
}

// Load reads a chart file.
func Load(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chart file")
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "chart %s", path)
	}
	return c, nil
}

// LoadDir loads every *.json chart in dir, sorted by title.
func LoadDir(dir string) ([]*Chart, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chart directory")
	}

	charts := make([]*Chart, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		c, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		zlog.Debug().Msgf("chart: loaded %q events=%d duration=%dms", c.Title, len(c.Events), c.Duration())
		charts = append(charts, c)
	}

	sort.SliceStable(charts, func(i, j int) bool {
		return charts[i].Title < charts[j].Title
	})
	return charts, nil
}
