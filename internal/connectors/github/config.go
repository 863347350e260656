package github

import (
	"fmt"
	"net/url"
	"strings"
)

// Config names the repository a Source indexes.
type Config struct {
	Owner string
	Repo  string

	// Ref is a branch, tag or commit SHA. Empty means the default branch.
	Ref string

	// FilePatterns are glob patterns for file filtering. Empty means all files.
	FilePatterns []string
}

// String returns "owner/repo" or "owner/repo@ref".
func (c Config) String() string {
	s := c.Owner + "/" + c.Repo
	if c.Ref != "" {
		s += "@" + c.Ref
	}
	return s
}

// ParseRepo parses "owner/repo[@ref]" or a github.com URL.
func ParseRepo(name string) (*Config, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty repository", ErrInvalidRepo)
	}

	if strings.HasPrefix(name, "https://") || strings.HasPrefix(name, "http://") {
		return parseRepoURL(name)
	}

	var ref string
	if i := strings.LastIndex(name, "@"); i >= 0 {
		name, ref = name[:i], name[i+1:]
		if ref == "" {
			return nil, fmt.Errorf("%w: empty ref", ErrInvalidRepo)
		}
	}

	owner, repo, ok := strings.Cut(strings.TrimSuffix(name, ".git"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: %q is not owner/repo", ErrInvalidRepo, name)
	}
	return &Config{Owner: owner, Repo: repo, Ref: ref}, nil
}

// parseRepoURL accepts https://github.com/owner/repo[.git][/tree/ref].
func parseRepoURL(raw string) (*Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepo, err)
	}
	if u.Host != "github.com" && u.Host != "www.github.com" {
		return nil, fmt.Errorf("%w: host %q is not github.com", ErrInvalidRepo, u.Host)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q has no owner/repo", ErrInvalidRepo, raw)
	}
	cfg := &Config{Owner: parts[0], Repo: strings.TrimSuffix(parts[1], ".git")}
	if len(parts) >= 4 && parts[2] == "tree" {
		cfg.Ref = strings.Join(parts[3:], "/")
	}
	return cfg, nil
}

// ParsePatterns parses a comma-separated glob patterns string.
func ParsePatterns(s string) []string {
	parts := strings.Split(s, ",")
	patterns := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			patterns = append(patterns, part)
		}
	}
	return patterns
}
