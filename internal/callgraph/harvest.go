package callgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"codegraph/internal/event"
	"codegraph/internal/logging"
	"codegraph/internal/lsp"
	"codegraph/internal/scheduler"
	"codegraph/internal/workspace"
)

// Config tunes a Harvest run (spec.md §4.5.3's retry/timeout knobs).
type Config struct {
	// Concurrency bounds the reference/documentSymbol fan-out (spec.md
	// §4.5.1 suggests ~20 for documentSymbol).
	Concurrency int
	// DefaultTimeout is the per-request timeout for languages other than C.
	DefaultTimeout time.Duration
	// AggressiveTimeout is the per-request timeout used for C, which fails
	// fast rather than waiting out a full default timeout on a stalled
	// clangd (spec.md §4.5.3).
	AggressiveTimeout time.Duration
	// MaxStallRestarts bounds how many times the client may be restarted
	// before Harvest gives up and surfaces an error.
	MaxStallRestarts int
	// KeepNullEnclosing controls whether edges whose reference site has no
	// resolvable enclosing function/method/class are kept (with a
	// "<module-level>" caller name) or dropped. Dropped by default — see
	// DESIGN.md's resolution of spec.md §9's Open Question (a).
	KeepNullEnclosing bool
	// RunID correlates emitted events across one Harvest invocation.
	RunID string
	// Bus receives crawl.* lifecycle and progress events. Nil disables
	// event emission.
	Bus *event.Bus
	// ServerOverride, if non-nil, is threaded into every workspace restart
	// so a config-overridden server command survives a stall recovery.
	ServerOverride *workspace.ServerOverride
}

// DefaultConfig returns the harvester's baseline tuning.
func DefaultConfig() Config {
	return Config{
		Concurrency:       20,
		DefaultTimeout:    30 * time.Second,
		AggressiveTimeout: 100 * time.Millisecond,
		MaxStallRestarts:  5,
	}
}

func (c Config) requestTimeout(lang string) time.Duration {
	if lang == "c" && c.AggressiveTimeout > 0 {
		return c.AggressiveTimeout
	}
	return c.DefaultTimeout
}

// workKey identifies one pending reference request.
type workKey struct {
	uri       string
	line      int
	character int
}

type workItem struct {
	workKey
	name string
}

// moduleLevelName is used for the caller side of an edge when no enclosing
// function/method/class resolves and KeepNullEnclosing is set.
const moduleLevelName = "<module-level>"

// Harvest drives the reference-based crawl (spec.md §4.5.3-§4.5.4): build
// the work list from every open document's qualifying symbols, fan out
// references requests with retry-on-stall, and assemble the result into a
// deduplicated invocation edge set. ws is consumed: on a stall it is torn
// down and replaced; Harvest returns the live workspace so the caller can
// shut it down exactly once.
func Harvest(ctx context.Context, ws *workspace.Workspace, root, lang string, cfg Config) (*EdgeSet, *workspace.Workspace, error) {
	edges := NewEdgeSet()
	done := make(map[workKey]bool)
	start := time.Now()
	firstPass := true

	attempt := 0
	for {
		symbolCache, err := fetchAllSymbols(ctx, ws, cfg)
		if err != nil {
			return nil, ws, err
		}

		pending := buildWorkList(ws, symbolCache)
		if firstPass {
			emit(cfg, event.CrawlStarted, event.CrawlStartedData{RunID: cfg.RunID, Root: root, Lang: lang, Total: len(pending)})
			firstPass = false
		}

		remaining := subtractDone(pending, done)
		if len(remaining) == 0 {
			break
		}

		stalled, err := runPass(ctx, ws, lang, remaining, done, edges, symbolCache, cfg)
		if err != nil {
			emit(cfg, event.CrawlFinished, event.CrawlFinishedData{RunID: cfg.RunID, EdgeCount: edges.Len(), ElapsedSec: time.Since(start).Seconds(), Errored: true})
			return nil, ws, err
		}
		if !stalled {
			continue
		}

		attempt++
		if attempt > cfg.MaxStallRestarts {
			err := fmt.Errorf("callgraph: exceeded max stall restarts (%d)", cfg.MaxStallRestarts)
			emit(cfg, event.CrawlFinished, event.CrawlFinishedData{RunID: cfg.RunID, EdgeCount: edges.Len(), ElapsedSec: time.Since(start).Seconds(), Errored: true})
			return nil, ws, err
		}
		emit(cfg, event.CrawlStalled, event.CrawlStalledData{RunID: cfg.RunID, Attempt: attempt, Reason: "repeated timeouts"})

		newWs, err := restart(ctx, ws, root, lang, cfg)
		if err != nil {
			emit(cfg, event.CrawlFinished, event.CrawlFinishedData{RunID: cfg.RunID, EdgeCount: edges.Len(), ElapsedSec: time.Since(start).Seconds(), Errored: true})
			return nil, ws, err
		}
		ws = newWs
	}

	emit(cfg, event.CrawlFinished, event.CrawlFinishedData{RunID: cfg.RunID, EdgeCount: edges.Len(), ElapsedSec: time.Since(start).Seconds()})
	return edges, ws, nil
}

// restart tears down ws and re-bootstraps a fresh client + document set for
// the same root/lang, implementing spec.md §4.5.3's "the client is
// idempotent over restarts because document state is re-established from
// disk every time." Bootstrap itself spawns a child process and can fail
// transiently (the same stalled server may still be exiting); a bounded
// exponential backoff absorbs that instead of surfacing a spurious error.
func restart(ctx context.Context, ws *workspace.Workspace, root, lang string, cfg Config) (*workspace.Workspace, error) {
	_ = ws.Shutdown(ctx)

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	var fresh *workspace.Workspace
	err := backoff.Retry(func() error {
		w, err := workspace.Bootstrap(ctx, root, lang, cfg.ServerOverride)
		if err != nil {
			return err
		}
		fresh = w
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// fetchAllSymbols fans a documentSymbol request out to every open URI
// (spec.md §4.5.1's "concurrency ~20") and returns the per-URI symbol tree.
func fetchAllSymbols(ctx context.Context, ws *workspace.Workspace, cfg Config) (map[string][]lsp.Symbol, error) {
	uris := ws.Client.OpenURIs()
	tasks := make([]scheduler.Task[[]lsp.Symbol], len(uris))
	for i, uri := range uris {
		uri := uri
		tasks[i] = func(ctx context.Context) ([]lsp.Symbol, error) {
			return ws.Client.DocumentSymbol(ctx, uri)
		}
	}

	results := scheduler.Run(ctx, tasks, scheduler.Options{Concurrency: concurrencyOr(cfg.Concurrency, 20)})

	cache := make(map[string][]lsp.Symbol, len(uris))
	for i, uri := range uris {
		r := results[i]
		if r.Err != nil {
			logging.Warn().Err(r.Err).Str("uri", uri).Msg("callgraph: documentSymbol failed, skipping file this pass")
			continue
		}
		cache[uri] = r.Value
	}
	return cache, nil
}

// buildWorkList turns every open document's qualifying symbols into the
// (uri, line, character, name) triples spec.md §4.5.3 describes.
func buildWorkList(ws *workspace.Workspace, symbolCache map[string][]lsp.Symbol) []workItem {
	var items []workItem
	for uri, symbols := range symbolCache {
		content := ws.Client.ReadFile(uri)
		seeds, err := SelectSymbols(uri, content, symbols)
		if err != nil {
			logging.Error().Err(err).Str("uri", uri).Msg("callgraph: symbol selection hard error")
			continue
		}
		for _, s := range seeds {
			items = append(items, workItem{
				workKey: workKey{uri: s.URI, line: s.Line, character: s.Character},
				name:    s.Name,
			})
		}
	}
	return items
}

func subtractDone(items []workItem, done map[workKey]bool) []workItem {
	var out []workItem
	for _, it := range items {
		if !done[it.workKey] {
			out = append(out, it)
		}
	}
	return out
}

// runPass fans the remaining work out under the scheduler with a
// language-dependent per-request timeout. Items that time out or hit a
// transport error are left pending (not marked done) and signal a stall;
// items that succeed, or come back as a clean LSP error ("no references for
// that symbol" per spec.md §7), are marked done and — on success —
// assembled into edges.
func runPass(ctx context.Context, ws *workspace.Workspace, lang string, items []workItem, done map[workKey]bool, edges *EdgeSet, symbolCache map[string][]lsp.Symbol, cfg Config) (stalled bool, err error) {
	timeout := cfg.requestTimeout(lang)

	tasks := make([]scheduler.Task[*lsp.ReferencesResult], len(items))
	for i, it := range items {
		it := it
		tasks[i] = func(ctx context.Context) (*lsp.ReferencesResult, error) {
			return ws.Client.References(ctx, it.uri, it.line, it.character, it.name, timeout)
		}
	}

	results := scheduler.Run(ctx, tasks, scheduler.Options{
		Concurrency:   concurrencyOr(cfg.Concurrency, 20),
		ProgressEvery: 50,
		RunID:         cfg.RunID,
		Bus:           cfg.Bus,
	})

	for i, r := range results {
		it := items[i]
		if r.Err != nil {
			var timeoutErr *lsp.TimeoutError
			var transportErr *lsp.TransportError
			if errors.As(r.Err, &timeoutErr) || errors.As(r.Err, &transportErr) {
				stalled = true
				continue
			}
			// LspError or anything else: treated as "no references" for
			// this symbol (spec.md §7), not as a stall signal.
			done[it.workKey] = true
			continue
		}

		done[it.workKey] = true
		assembleEdges(ws, symbolCache, it, r.Value, edges, cfg)
	}

	return stalled, nil
}

// assembleEdges resolves the enclosing function at each reference site and
// records an invoke edge back to the seed symbol's definition (spec.md
// §4.5.4).
func assembleEdges(ws *workspace.Workspace, symbolCache map[string][]lsp.Symbol, seed workItem, refs *lsp.ReferencesResult, edges *EdgeSet, cfg Config) {
	defRelPath := ws.Relativize(seed.uri)
	if isFilteredPath(defRelPath) {
		return
	}

	for _, loc := range refs.Locations {
		refRelPath := ws.Relativize(loc.URI)
		if isFilteredPath(refRelPath) {
			continue
		}

		enclosing, ok := resolveEnclosing(symbolCache[loc.URI], loc.Range.Start.Line)
		if !ok {
			if !cfg.KeepNullEnclosing {
				continue
			}
			enclosing = moduleLevelName
		}

		edge := Edge{
			Caller:   Location{RelPath: refRelPath, Line: loc.Range.Start.Line + 1, Name: enclosing},
			Relation: RelationInvoke,
			Callee:   Location{RelPath: defRelPath, Line: seed.line + 1, Name: seed.name},
		}
		if edges.Add(edge) {
			logProgress(edges.Len())
		}
	}
}

// resolveEnclosing finds the innermost Function/Method/Class whose range
// spans line, walking children recursively and preferring the deepest
// match (spec.md §4.5.4 step 1, GLOSSARY "Enclosing function").
func resolveEnclosing(symbols []lsp.Symbol, line int) (string, bool) {
	var walk func(syms []lsp.Symbol, containerQualified string) (string, bool)
	walk = func(syms []lsp.Symbol, containerQualified string) (string, bool) {
		for _, s := range syms {
			if !s.Range.Contains(line) {
				continue
			}
			qualified := s.Name
			if containerQualified != "" {
				qualified = containerQualified + "." + s.Name
			}
			if name, ok := walk(s.Children, qualified); ok {
				return name, true
			}
			if seedKinds[s.Kind] {
				return qualified, true
			}
		}
		return "", false
	}
	return walk(symbols, "")
}

// logProgress logs cumulative edge-set size every 1000 edges at info level
// and every 100 at debug level (spec.md §4.5.4 step 4).
func logProgress(n int) {
	if n%1000 == 0 {
		logging.Info().Int("edges", n).Msg("callgraph: progress")
	} else if n%100 == 0 {
		logging.Debug().Int("edges", n).Msg("callgraph: progress")
	}
}

func emit(cfg Config, t event.EventType, data any) {
	if cfg.Bus == nil {
		return
	}
	cfg.Bus.Publish(event.Event{Type: t, Data: data})
}

func concurrencyOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
