package event

// CrawlStartedData is the data for crawl.started events: emitted once a
// workspace has been bootstrapped and symbol harvesting begins.
type CrawlStartedData struct {
	RunID string `json:"runID"`
	Root  string `json:"root"`
	Lang  string `json:"lang"`
	Total int    `json:"total"` // number of seed symbols to process
}

// CrawlProgressData is the data for crawl.progress events, emitted by the
// scheduler's streamed-progress variant every N completions or T seconds.
type CrawlProgressData struct {
	RunID      string  `json:"runID"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
	ElapsedSec float64 `json:"elapsedSec"`
	PerSec     float64 `json:"perSec"`
	ETASec     float64 `json:"etaSec"`
}

// CrawlStalledData is the data for crawl.stalled events, emitted when the
// harvester detects no forward progress and is about to restart the client.
type CrawlStalledData struct {
	RunID   string `json:"runID"`
	Attempt int    `json:"attempt"`
	Reason  string `json:"reason"`
}

// CrawlFinishedData is the data for crawl.finished events.
type CrawlFinishedData struct {
	RunID      string  `json:"runID"`
	EdgeCount  int     `json:"edgeCount"`
	ElapsedSec float64 `json:"elapsedSec"`
	Errored    bool    `json:"errored"`
}

// EdgeDiscoveredData is the data for edge.discovered events, describing one
// invocation edge. The harvester does not publish these events.
type EdgeDiscoveredData struct {
	RunID    string `json:"runID"`
	Caller   string `json:"caller"`
	Relation string `json:"relation"`
	Callee   string `json:"callee"`
}

// DiagnosticsPublishedData is the data for diagnostics.published events,
// carrying a publishDiagnostics count. The LSP client keeps its own counter
// and does not publish these events.
type DiagnosticsPublishedData struct {
	URI   string `json:"uri"`
	Count int64  `json:"count"`
}
