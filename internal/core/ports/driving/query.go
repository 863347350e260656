package driving

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// QueryService answers questions grounded in retrieved context.
type QueryService interface {
	// Ask answers question from the given scope using up to topK fragments.
	Ask(ctx context.Context, question string, scope domain.SearchScope, topK int) (*domain.Answer, error)
}
