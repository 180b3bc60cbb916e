// Package classify routes a free-text query to a workflow. It is a pure
// table lookup with no I/O so it can be tested in isolation.
package classify

import (
	"strings"

	"github.com/omnitech/supportagent/pkg/model"
)

// DefaultCategory is assigned when no trigger phrase matches
const DefaultCategory = "general_inquiry"

// Category pairs a category name with its trigger phrases
type Category struct {
	Name     string
	Triggers []string
}

// DefaultCategories is the fixed routing table. Order matters: the first
// category with a matching phrase wins, so overlapping phrases (e.g.
// "refund") resolve deterministically.
func DefaultCategories() []Category {
	return []Category{
		{
			Name: "account_security",
			Triggers: []string{
				"reset my password", "password reset", "forgot password",
				"change password", "locked out", "two-factor", "2fa",
				"can't log in", "cannot log in", "login",
			},
		},
		{
			Name: "billing",
			Triggers: []string{
				"billing", "invoice", "payment", "subscription",
				"charged twice", "overcharged", "refund",
			},
		},
		{
			Name: "technical_support",
			Triggers: []string{
				"won't turn on", "not working", "broken", "error code",
				"troubleshoot", "crash", "frozen", "keeps restarting",
			},
		},
		{
			Name: "shipping",
			Triggers: []string{
				"shipping", "delivery", "tracking", "where is my order",
				"hasn't arrived",
			},
		},
		{
			Name: "returns",
			Triggers: []string{
				"return policy", "return my", "exchange", "warranty",
				"send it back",
			},
		},
	}
}

// Classifier maps queries to workflows using a fixed category table
type Classifier struct {
	categories []Category
}

// New creates a classifier. With no categories the default table is used.
func New(categories ...Category) *Classifier {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	return &Classifier{categories: categories}
}

// Classify returns the workflow and category for a query. Matching is
// case-insensitive substring search, first match wins. An empty query or
// one with no trigger phrase falls through to the direct-RAG workflow with
// the general-inquiry category.
func (c *Classifier) Classify(query string) (model.Workflow, string) {
	lowered := strings.ToLower(query)
	if lowered == "" {
		return model.WorkflowDirectRAG, DefaultCategory
	}

	for _, cat := range c.categories {
		for _, trigger := range cat.Triggers {
			if strings.Contains(lowered, trigger) {
				return model.WorkflowClassification, cat.Name
			}
		}
	}

	return model.WorkflowDirectRAG, DefaultCategory
}
