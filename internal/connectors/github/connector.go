package github

import (
	"context"
	"errors"

	"github.com/custodia-labs/codeassist/internal/connectors"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.CorpusSource = (*Source)(nil)

// Source walks the files of one GitHub repository.
type Source struct {
	config *Config
	client *Client
	rules  *connectors.IgnoreRules
}

// New creates a source for cfg. Extra ignore entries extend the defaults.
func New(cfg *Config, client *Client, ignore ...string) *Source {
	return &Source{
		config: cfg,
		client: client,
		rules:  connectors.NewIgnoreRules(ignore...),
	}
}

// Name returns "owner/repo" or "owner/repo@ref".
func (s *Source) Name() string {
	return s.config.String()
}

// Walk fetches every indexable blob at the configured ref and passes it to fn.
// Relative paths are the repository paths.
func (s *Source) Walk(ctx context.Context, fn func(domain.SourceFile) error) (int, error) {
	owner, repo := s.config.Owner, s.config.Repo

	ref, err := s.resolveRef(ctx)
	if err != nil {
		return 0, err
	}
	logger.Debug("github: listing %s/%s at %s", owner, repo, ref)

	tree, err := s.client.GetTree(ctx, owner, repo, ref)
	if err != nil {
		return 0, describe(s.Name(), err)
	}
	if tree.GetTruncated() {
		logger.Warn("github: tree of %s is truncated, some files will not be indexed", s.Name())
	}

	entries, skipped := blobEntries(tree, func(p string) bool {
		return !s.rules.SkipPath(p) && matchesPatterns(p, s.config.FilePatterns)
	})
	logger.Debug("github: %d blobs to fetch, %d over size limit", len(entries), skipped)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}

		raw, err := s.fetch(ctx, entry.GetSHA())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return skipped, err
			}
			logger.Warn("%v", &domain.IngestError{Path: entry.GetPath(), Err: err})
			skipped++
			continue
		}

		text, ok := connectors.DecodeText(raw)
		if !ok {
			continue
		}
		if err := fn(domain.SourceFile{RelPath: entry.GetPath(), Content: text}); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

// fetch downloads a blob, waiting out one rate limit reset if needed.
func (s *Source) fetch(ctx context.Context, sha string) ([]byte, error) {
	raw, err := fetchBlobContent(ctx, s.client, s.config.Owner, s.config.Repo, sha)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		return raw, err
	}

	logger.Warn("github: rate limited, waiting until %s", rl.ResetAt.Format("15:04:05"))
	if err := s.client.WaitForReset(ctx); err != nil {
		return nil, err
	}
	return fetchBlobContent(ctx, s.client, s.config.Owner, s.config.Repo, sha)
}

func (s *Source) resolveRef(ctx context.Context) (string, error) {
	if s.config.Ref != "" {
		return s.config.Ref, nil
	}
	repo, err := s.client.GetRepository(ctx, s.config.Owner, s.config.Repo)
	if err != nil {
		return "", describe(s.Name(), err)
	}
	if branch := repo.GetDefaultBranch(); branch != "" {
		return branch, nil
	}
	return "HEAD", nil
}
