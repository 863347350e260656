// Package github implements a corpus source for a single GitHub repository.
//
// A repository is named "owner/repo", optionally followed by "@ref" to pin a
// branch, tag or commit. Without a ref the default branch is indexed. A full
// GitHub URL such as https://github.com/owner/repo/tree/main is also accepted.
//
// # Fetching
//
// The source lists the repository with the recursive Trees API in a single
// call, applies the shared ignore rules to every blob path and then fetches
// each remaining blob. Blobs larger than 1 MiB are skipped, as are blobs that
// decode to nothing but whitespace. Files that fail to download are logged
// and counted as skipped; they never abort the walk.
//
// # Authentication
//
// A personal access token is sent through an oauth2 static token source.
// Without a token the client is unauthenticated, which works for public
// repositories but is limited to 60 requests per hour.
//
// # Rate Limiting
//
// Calls are paced by a token bucket at DefaultRequestsPerSecond. The quota
// go-github parses from each response is kept, and once fewer than 100 calls
// remain the client sleeps until the window resets. A blob that still hits
// the limit is retried once after the reset; the resulting RateLimitError
// matches domain.ErrRateLimited.
package github
