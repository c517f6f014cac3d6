package domain

// Reporter receives notifications about incoherent history data found while
// reconstructing past states. Implementations decide whether to log, count
// or silently drop reports.
type Reporter interface {
	Report(message string, context map[string]any)
}

// ReporterFunc adapts a plain function to the Reporter interface.
type ReporterFunc func(message string, context map[string]any)

func (f ReporterFunc) Report(message string, context map[string]any) {
	f(message, context)
}

func report(r Reporter, message string, context map[string]any) {
	if r == nil {
		return
	}
	r.Report(message, context)
}
