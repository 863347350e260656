package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/connectors/filesystem"
	"github.com/custodia-labs/codeassist/internal/connectors/github"
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestIsGitHubRoot(t *testing.T) {
	tests := map[string]bool{
		".":                             false,
		"/src/app":                      false,
		"github:golang/go":              true,
		"https://github.com/golang/go":  true,
		"https://gitlab.com/group/proj": false,
	}
	for root, want := range tests {
		assert.Equal(t, want, isGitHubRoot(root), root)
	}
}

func TestCorpusSource(t *testing.T) {
	settings := domain.DefaultAppSettings()

	settings.Corpus.Root = t.TempDir()
	src, err := corpusSource(context.Background(), &settings, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &filesystem.Connector{}, src)

	settings.Corpus.Root = "github:golang/go@master"
	src, err = corpusSource(context.Background(), &settings, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &github.Source{}, src)
	assert.Equal(t, "golang/go@master", src.Name())

	settings.Corpus.Root = "github:not-a-repo"
	_, err = corpusSource(context.Background(), &settings, t.TempDir())
	assert.ErrorIs(t, err, github.ErrInvalidRepo)
}
