package ui

// Reporter receives the progress of a collection run. The plain progress
// line and the TUI both implement it.
type Reporter interface {
	CollectionStarted(platform, title, collection string)
	LinksAdded(collection string, added, total int)
	TimeRemaining(seconds int)
	CollectionFinished(collection string, total int, reason string)
	LogInfo(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) CollectionStarted(platform, title, collection string)           {}
func (NopReporter) LinksAdded(collection string, added, total int)                 {}
func (NopReporter) TimeRemaining(seconds int)                                      {}
func (NopReporter) CollectionFinished(collection string, total int, reason string) {}
func (NopReporter) LogInfo(format string, args ...interface{})                     {}
func (NopReporter) LogWarning(format string, args ...interface{})                  {}
func (NopReporter) LogError(format string, args ...interface{})                    {}
