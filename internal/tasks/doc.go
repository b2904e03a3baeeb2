// Package tasks runs the overlay's background work and the event loop that ties it together.
//
// # Components
//
//  1. [Poller] : asks the playback provider what is playing
//     - Emits TrackChanged only when the track ID differs from the last one seen
//     - Retries transient failures after 1s, 2s and 4s, then emits PollFailed
//     - Emits AuthRequired on credential errors and parks until [Poller.Resume]
//
//  2. [Fetcher] : answers lyrics requests
//     - Bounded LRU cache first, then the optional archive, then the provider
//     - Not-found results are cached as negative entries; transport errors are not cached
//     - Concurrent requests for one track share a single lookup
//
//  3. [Coordinator] : single consumer of the [Signal] queue
//     - Owns the displayed track, overlay visibility and window position
//     - Tags lyrics requests with the track ID and drops answers for superseded tracks
//     - Drives a [Surface] and persists [prefs.AppConfig]
//
// # Signals
//
// Components never call into the coordinator's state. Completion of blocking work (lookups,
// OAuth, polls) is reported by posting a [Signal]. Signals are handled strictly in arrival order.
package tasks
