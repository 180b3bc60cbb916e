package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/omnitech/supportagent/pkg/model"
)

// Memory is an in-process Knowledge implementation using keyword overlap
// scoring. It serves tests and offline runs where no Firestore index
// exists.
type Memory struct {
	docs []*Document
}

// NewMemory creates an in-memory knowledge store
func NewMemory(docs ...*Document) *Memory {
	return &Memory{docs: docs}
}

// Add appends a document
func (m *Memory) Add(doc *Document) {
	m.docs = append(m.docs, doc)
}

// Search ranks documents by the number of query terms they contain
func (m *Memory) Search(ctx context.Context, query string, limit int) ([]*model.KnowledgeSnippet, error) {
	if limit <= 0 {
		limit = 5
	}

	terms := strings.Fields(strings.ToLower(query))

	type scored struct {
		doc   *Document
		score int
	}
	var matches []scored
	for _, doc := range m.docs {
		content := strings.ToLower(doc.Content)
		score := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	snippets := make([]*model.KnowledgeSnippet, 0, len(matches))
	for _, m := range matches {
		snippets = append(snippets, &model.KnowledgeSnippet{
			Content: m.doc.Content,
			Source:  m.doc.Source,
		})
	}
	return snippets, nil
}
