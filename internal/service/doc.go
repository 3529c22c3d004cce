// Package service runs discovery sweeps.
//
// Discovery ties a HostDiscoverer, the classification engine and the
// classification cache together. One sweep loads the cache, discovers the
// hosts in a target range, then classifies them one by one in discovery
// order. Only port probes run concurrently, and only ahead of time: when
// prefetch is enabled the ports of every host the cache cannot answer are
// fetched with a bounded errgroup before classification starts.
//
// # Events
//
// Every sweep publishes sweep_started, one host_classified per result,
// and sweep_completed through the EventBus. A failed host discovery adds
// discovery_failed and the sweep continues with no hosts. Slow subscribers
// miss events rather than stall the sweep.
//
// # Scheduling
//
// Scheduler repeats sweeps over a fixed target list on an interval. Scheduled
// and manually triggered sweeps share one lock, so at most one sweep touches
// the cache at a time.
package service
