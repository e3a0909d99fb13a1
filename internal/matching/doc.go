// Package matching decides whether a track or album on the target catalog is the same recording as one on the source catalog.
//
// # Track Matching
//
// [Matcher.Match] tries two paths in order:
//
//  1. ISRC: equal, non-empty codes match regardless of every other field.
//  2. Combined: duration, name and artist checks must all pass.
//
// The combined path rejects pairs where exactly one side is an instrumental, acapella or remix.
// Names are compared after [Simplify] strips version qualifiers, and again after [Fold] strips diacritics.
//
// # Album Matching
//
// [Matcher.AlbumSimilar] compares simplified album names with a matching-blocks similarity ratio
// and requires at least one shared album artist.
//
// # Tracing
//
// Both checks accept an optional [Tracer] that receives one line per decision.
// Pass nil when no trace is needed.
package matching
