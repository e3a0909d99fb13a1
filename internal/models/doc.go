// Package models defines the catalog snapshots and cache records shared by the sync pipeline.
//
// The package contains two categories of types:
//
// 1. Catalog snapshots: read-only values fetched once per sync run
//   - [SourceTrack] : Track on the source catalog, with album position and ISRC
//   - [TargetTrack] : Track on the target catalog, with optional version and availability
//   - [TargetAlbum] : Album on the target catalog; its tracks are fetched lazily
//   - [Playlist] : Playlist metadata from either catalog
//
// 2. Cache records: persisted across runs by the repositories package
//   - [MatchRecord] : source id → target id
//
// Durations are in seconds. Artist lists keep the order the catalog returned.
package models
