package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range documentCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"upload", "list", "get", "delete"}, names)
}

func TestDocumentUploadCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("release notes"), 0o600))

	out, err := executeCommand("document", "upload", path)

	require.NoError(t, err)
	assert.Equal(t, "notes.txt", ts.documents.uploadedName)
	assert.Equal(t, "release notes", ts.documents.uploadedContent)
	assert.Contains(t, out, "Uploaded notes.txt as doc-1 (2 chunks)")
}

func TestDocumentUploadCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("document", "upload", filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestDocumentListCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "File:   notes.txt")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestDocumentGetCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "get", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Stored:   /data/uploads/doc-1_notes.txt")
	assert.Contains(t, out, "1 hour ago")
}

func TestDocumentGetCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("document", "get", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentDeleteCmd(t *testing.T) {
	tests := []struct {
		name    string
		removed int
		want    string
	}{
		{"counted", 2, "Document doc-1 deleted (2 fragments removed)."},
		{"unknown count", domain.DeleteCountUnknown, "Document doc-1 deleted."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()
			ts.documents.deleteCount = tt.removed

			out, err := executeCommand("document", "delete", "doc-1")

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestDocumentCmds_RequireArgs(t *testing.T) {
	for _, sub := range []string{"upload", "get", "delete"} {
		t.Run(sub, func(t *testing.T) {
			_, err := executeCommand("document", sub)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "accepts 1 arg(s)")
		})
	}
}

func TestDocumentCmds_NoService(t *testing.T) {
	_, err := executeCommand("document", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}
