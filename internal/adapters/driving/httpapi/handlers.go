package httpapi

import (
	"fmt"
	"io"
	"sort"

	"github.com/gofiber/fiber/v3"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`

	// Scope defaults to documents, the uploaded-document RAG path.
	Scope string `json:"scope"`
}

// QueryHit is one retrieved fragment in a query response.
type QueryHit struct {
	ID         string         `json:"id"`
	Score      float64        `json:"score"`
	DocID      string         `json:"doc_id,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Path       string         `json:"path,omitempty"`
	ChunkIndex any            `json:"chunk_index,omitempty"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// QueryResponse is the body returned by POST /query.
type QueryResponse struct {
	Answer  string     `json:"answer"`
	Sources []string   `json:"sources"`
	Hits    []QueryHit `json:"hits"`
}

// GenerateRequest is the body of POST /assistant/query.
type GenerateRequest struct {
	Instruction string `json:"instruction"`
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"indexed": s.ports.Corpus.IsIndexed(),
	})
}

func (s *Server) index(c fiber.Ctx) error {
	force := fiber.Query[bool](c, "force")
	if err := s.ports.Corpus.Index(c.Context(), force); err != nil {
		return err
	}
	return c.JSON(s.ports.Corpus.Stats())
}

func (s *Server) upload(c fiber.Ctx) error {
	if s.ports.Document == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "document uploads are not configured")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrInvalidInput)
	}
	f, err := header.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	doc, err := s.ports.Document.Upload(c.Context(), header.Filename, content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"doc_id": doc.ID, "chunks": doc.ChunkCount})
}

func (s *Server) query(c fiber.Ctx) error {
	if s.ports.Query == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "question answering is not configured")
	}

	var body QueryRequest
	if err := c.Bind().JSON(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	scope := domain.SearchScope(body.Scope)
	if scope == "" {
		scope = domain.ScopeDocuments
	}

	answer, err := s.ports.Query.Ask(c.Context(), body.Query, scope, body.TopK)
	if err != nil {
		return err
	}
	return c.JSON(toQueryResponse(answer))
}

func (s *Server) listDocuments(c fiber.Ctx) error {
	if s.ports.Document == nil {
		return c.JSON([]domain.Document{})
	}
	docs, err := s.ports.Document.List(c.Context())
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return c.JSON(docs)
}

func (s *Server) getDocument(c fiber.Ctx) error {
	if s.ports.Document == nil {
		return domain.ErrNotFound
	}
	doc, err := s.ports.Document.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (s *Server) deleteDocument(c fiber.Ctx) error {
	if s.ports.Document == nil {
		return domain.ErrNotFound
	}
	id := c.Params("id")
	removed, err := s.ports.Document.Delete(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "deleted", "doc_id": id, "removed": removed})
}

func (s *Server) generate(c fiber.Ctx) error {
	if s.ports.Generation == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "code generation is not configured")
	}

	var body GenerateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}

	result, err := s.ports.Generation.Generate(c.Context(), body.Instruction)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func toQueryResponse(answer *domain.Answer) QueryResponse {
	resp := QueryResponse{
		Answer:  answer.Answer,
		Sources: []string{},
		Hits:    make([]QueryHit, len(answer.Sources)),
	}

	seen := make(map[string]bool)
	for i, h := range answer.Sources {
		resp.Hits[i] = QueryHit{
			ID:         h.ID,
			Score:      h.Score,
			DocID:      h.MetaString(domain.MetaDocID),
			Filename:   h.MetaString(domain.MetaFilename),
			Path:       h.MetaString(domain.MetaPath),
			ChunkIndex: h.Metadata[domain.MetaChunkIndex],
			Text:       h.Text,
			Metadata:   h.Metadata,
		}

		source := resp.Hits[i].DocID
		if source == "" {
			source = resp.Hits[i].Path
		}
		if source != "" && !seen[source] {
			seen[source] = true
			resp.Sources = append(resp.Sources, source)
		}
	}
	sort.Strings(resp.Sources)
	return resp
}
