// Package repositories implements the SQLite-backed match and failure caches.
//
// A [Store] owns the database connection and hands out two repositories:
//   - [MatchRepository] : source track id -> target track id, one target per source
//   - [FailureRepository] : source track ids for which no target was found
//
// The relations never overlap. Inserting a match deletes any failure for the same
// source id in the same transaction, and caching a failure for a matched id is a no-op.
// Failure entries do not expire; they persist until a later match supersedes them.
package repositories
