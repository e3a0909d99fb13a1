// Package tasks orchestrates playlist sync from a source catalog to a target catalog.
//
// # Pipeline
//
// For each playlist (or the favorites list) the [SyncEngine]:
//
//  1. fetches the source tracks and drops malformed ones (no id or no album artist)
//  2. fetches the current target tracks, creating the target playlist when missing
//  3. pre-populates the match cache by pairing tracks already on the target ([Populate])
//  4. searches the target catalog for every track with no cached match or failure ([Searcher])
//  5. builds the deduplicated desired id sequence ([DesiredIDs])
//  6. computes and applies the minimal update ([Reconcile], [Apply])
//
// # Search
//
// [Searcher.SearchAll] fans tracks out on an errgroup bounded by max_concurrency. Every search
// phase takes one token from a leaky bucket refilled at rate_limit per second, so concurrency
// bounds parallelism while the rate alone bounds throughput. Each search runs inside the retry
// policy; exhausting it cancels the batch and surfaces a [retry.ExhaustedError].
//
// # Tracing
//
// Every matching decision is recorded per source track id in a [TraceStore]. Traces are written
// to the trace file only when diagnostics are enabled.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends never block; updates are
// dropped when the channel is full.
package tasks
