package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	gh "github.com/google/go-github/v80/github"
)

// MaxBlobSize is the largest file fetched, matching the contents API limit.
const MaxBlobSize = 1024 * 1024

// fetchBlobContent fetches the content of a blob and decodes it.
func fetchBlobContent(ctx context.Context, client *Client, owner, repo, sha string) ([]byte, error) {
	blob, err := client.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return nil, err
	}

	switch blob.GetEncoding() {
	case "base64":
		// GitHub wraps base64 content at 60 columns.
		content := strings.ReplaceAll(blob.GetContent(), "\n", "")
		raw, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("decode blob %s: %w", sha, err)
		}
		return raw, nil
	default:
		return []byte(blob.GetContent()), nil
	}
}

// matchesPatterns checks if a path matches any of the glob patterns.
func matchesPatterns(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, pattern := range patterns {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
		if matched, err := path.Match(pattern, p); err == nil && matched {
			return true
		}
	}
	return false
}

// blobEntries returns the tree entries worth fetching and how many blobs were
// dropped for being too large.
func blobEntries(tree *gh.Tree, keep func(path string) bool) ([]*gh.TreeEntry, int) {
	var (
		entries []*gh.TreeEntry
		tooBig  int
	)
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || !keep(entry.GetPath()) {
			continue
		}
		if entry.GetSize() > MaxBlobSize {
			tooBig++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, tooBig
}
