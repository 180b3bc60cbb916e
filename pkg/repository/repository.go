package repository

import (
	"context"

	"github.com/omnitech/supportagent/pkg/model"
)

// Knowledge is the retrieval collaborator: given a free-text query it
// returns relevance-ranked documentation snippets. An empty result is a
// valid response, not an error.
type Knowledge interface {
	// Search returns up to limit snippets ordered by relevance
	Search(ctx context.Context, query string, limit int) ([]*model.KnowledgeSnippet, error)
}

// Document is a stored knowledge-base entry
type Document struct {
	ID      string
	Content string
	Source  string
}
