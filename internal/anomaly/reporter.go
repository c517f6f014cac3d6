package anomaly

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/mano-sesan/mano-stats/internal/domain"
)

// LogReporter writes anomaly reports to the process log. It is the
// production sink: reports are diagnostics, never control flow.
type LogReporter struct{}

func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

func (r *LogReporter) Report(message string, context map[string]any) {
	if len(context) == 0 {
		log.Printf("[anomaly] %s", message)
		return
	}
	keys := make([]string, 0, len(context))
	for key := range context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+formatContextValue(context[key]))
	}
	log.Printf("[anomaly] %s (%s)", message, strings.Join(parts, " "))
}

func formatContextValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case interface{ String() string }:
		return typed.String()
	default:
		return "?"
	}
}

// Collector accumulates reports in memory. It backs the result side channel
// exposed to callers and the assertions in tests.
type Collector struct {
	mu      sync.Mutex
	reports []Report
}

// Report is one collected anomaly.
type Report struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(message string, context map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, Report{Message: message, Context: context})
}

// Reports returns a copy of everything collected so far.
func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Len returns the number of collected reports.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}

// NopReporter discards every report.
type NopReporter struct{}

func (NopReporter) Report(string, map[string]any) {}

// Tee fans a report out to several sinks.
func Tee(sinks ...domain.Reporter) domain.Reporter {
	return domain.ReporterFunc(func(message string, context map[string]any) {
		for _, sink := range sinks {
			if sink != nil {
				sink.Report(message, context)
			}
		}
	})
}

var _ domain.Reporter = (*LogReporter)(nil)
var _ domain.Reporter = (*Collector)(nil)
var _ domain.Reporter = NopReporter{}
