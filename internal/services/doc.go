// Package services implements the catalog providers consumed by the sync engine.
//
// # Catalog Interfaces
//
// [SourceCatalog] is read from and [TargetCatalog] is written to. The sync engine only sees
// these interfaces, so tests substitute in-memory catalogs.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 bearer tokens taken from config. The [oauth2] client refreshes
// an expired access token with the refresh token. List endpoints are paginated with limit/offset.
//
// # YouTube Music Implementation
//
// [YouTubeService] communicates with the FastAPI proxy server wrapping ytmusicapi.
// The headers file path is sent via the X-Auth-File header on each request.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which matches [shared.ErrAPIRequest] and, for
// 429 responses, [shared.ErrRateLimited]. The retry policy keys off these sentinels.
package services
