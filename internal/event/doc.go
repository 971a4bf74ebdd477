/*
Package event provides a type-safe pub/sub event system used to report
crawl progress and discovered edges without coupling the scheduler and
harvester to any particular reporting front end.

# Architecture

The package is built on top of watermill's gochannel for infrastructure
while maintaining direct-call semantics to preserve type information. It
provides both synchronous and asynchronous event publishing patterns.

# Event Types

  - crawl.started: a crawl run has bootstrapped its workspace and begins
    harvesting
  - crawl.progress: periodic throughput/ETA update from the scheduler
  - crawl.stalled: the harvester detected no forward progress and is
    restarting its client
  - crawl.finished: a crawl run completed (or gave up)
  - edge.discovered: one invocation edge was assembled (defined, but not
    published by the harvester)
  - diagnostics.published: a publishDiagnostics count (defined, but not
    published by the LSP client)

# Basic Usage

Publishing events:

	event.Publish(event.Event{
		Type: event.CrawlProgress,
		Data: event.CrawlProgressData{RunID: runID, Completed: 10, Total: 100},
	})

	event.PublishSync(event.Event{
		Type: event.CrawlFinished,
		Data: event.CrawlFinishedData{RunID: runID, EdgeCount: 42},
	})

Subscribing to specific events:

	unsubscribe := event.Subscribe(event.CrawlProgress, func(e event.Event) {
		data := e.Data.(event.CrawlProgressData)
		fmt.Printf("%d/%d\n", data.Completed, data.Total)
	})
	defer unsubscribe()

Subscribing to all events:

	unsubscribe := event.SubscribeAll(func(e event.Event) {
		log.Debug().Str("type", string(e.Type)).Msg("event")
	})
	defer unsubscribe()

# Subscriber Safety Guidelines

When using PublishSync, subscribers are called synchronously in the
publisher's goroutine. To avoid blocking or deadlocks, subscribers MUST:

  - Complete quickly (avoid long-running operations)
  - Use non-blocking channel sends (select with default case)
  - Never call Publish/PublishSync from within a subscriber
  - Never acquire locks that the publisher might hold

# Custom Event Bus

For testing or isolation, create an independent bus instance:

	bus := event.NewBus()
	defer bus.Close()

	unsubscribe := bus.Subscribe(event.CrawlProgress, handler)
	bus.PublishSync(event.Event{Type: event.CrawlProgress, Data: data})

# Testing

	// Reset global bus state (use in test cleanup)
	event.Reset()

# Thread Safety

The event bus is thread-safe and can be used concurrently from multiple
goroutines. Both publishing and subscribing operations are protected by
internal synchronization.
*/
package event
