package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect opens a client session to s over in-memory transports.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientT, serverT := mcp.NewInMemoryTransports()

	ss, err := s.server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestNewServer_RequiresCorpus(t *testing.T) {
	for _, ports := range []*Ports{nil, {}, {Query: &mockQueryService{}}} {
		s, err := NewServer(ports)
		assert.ErrorIs(t, err, ErrMissingCorpusService)
		assert.Nil(t, s)
	}
}

func TestServer_ToolsFollowPorts(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  []string
	}{
		{"corpus only", &Ports{Corpus: &mockCorpusService{}}, []string{"search_codebase"}},
		{
			"with query",
			&Ports{Corpus: &mockCorpusService{}, Query: &mockQueryService{}},
			[]string{"ask", "search_codebase"},
		},
		{
			"everything",
			&Ports{Corpus: &mockCorpusService{}, Query: &mockQueryService{}, Generation: &mockGenerationService{}, Document: &mockDocumentService{}},
			[]string{"ask", "generate_code", "search_codebase"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewServer(tt.ports)
			require.NoError(t, err)

			res, err := connect(t, s).ListTools(context.Background(), nil)
			require.NoError(t, err)

			var names []string
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestServer_Resources(t *testing.T) {
	s, err := NewServer(&Ports{Corpus: &mockCorpusService{}})
	require.NoError(t, err)
	cs := connect(t, s)

	res, err := cs.ListResources(context.Background(), nil)
	require.NoError(t, err)
	var uris []string
	for _, r := range res.Resources {
		uris = append(uris, r.URI)
	}
	assert.ElementsMatch(t, []string{"codeassist://corpus", "codeassist://documents"}, uris)

	templates, err := cs.ListResourceTemplates(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, templates.ResourceTemplates, 1)
	assert.Equal(t, "codeassist://documents/{documentId}", templates.ResourceTemplates[0].URITemplate)
}

func TestServer_Instructions(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		has     []string
		missing []string
	}{
		{
			name:    "search only",
			ports:   &Ports{Corpus: &mockCorpusService{}},
			has:     []string{"search_codebase"},
			missing: []string{"Use ask", "generate_code"},
		},
		{
			name:  "all tools",
			ports: &Ports{Corpus: &mockCorpusService{}, Query: &mockQueryService{}, Generation: &mockGenerationService{}},
			has:   []string{"search_codebase", "Use ask", "generate_code", "nothing is written to disk"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewServer(tt.ports)
			require.NoError(t, err)
			text := s.instructions()
			for _, want := range tt.has {
				assert.Contains(t, text, want)
			}
			for _, unwanted := range tt.missing {
				assert.NotContains(t, text, unwanted)
			}
		})
	}
}

func TestServer_Handler(t *testing.T) {
	s, err := NewServer(&Ports{Corpus: &mockCorpusService{}})
	require.NoError(t, err)
	assert.NotNil(t, s.Handler())
}
