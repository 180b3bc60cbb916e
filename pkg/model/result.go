package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Workflow is a named processing path selected per query
type Workflow string

const (
	// WorkflowClassification handles recognized support topics through
	// template and category-scoped knowledge tools
	WorkflowClassification Workflow = "classification"
	// WorkflowDirectRAG handles open-ended queries through full-corpus search
	WorkflowDirectRAG Workflow = "direct_rag"
)

// Action represents the follow-up action suggested by the generated answer
type Action string

const (
	ActionNone         Action = "none"
	ActionCreateTicket Action = "create_ticket"
	ActionEscalate     Action = "escalate"
)

// Normalize maps unknown action values to ActionNone. The generation
// provider is free text and cannot be trusted to emit valid enum values.
func (a Action) Normalize() Action {
	switch a {
	case ActionNone, ActionCreateTicket, ActionEscalate:
		return a
	default:
		return ActionNone
	}
}

// SentinelKnowledgeBaseOnly is a reserved response value meaning "no model
// output available". It must be substituted with retrieved documentation
// before reaching the user.
const SentinelKnowledgeBaseOnly = "KNOWLEDGE_BASE_ONLY"

// Reply is the structured fragment recovered from a raw model completion
type Reply struct {
	Response     string  `json:"response"`
	ActionNeeded Action  `json:"action_needed"`
	Confidence   float64 `json:"confidence"`
}

// Validate checks the invariants every recovered reply must hold
func (r *Reply) Validate() error {
	if r.Response == "" {
		return goerr.New("reply response is empty")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return goerr.New("confidence out of range", goerr.V("confidence", r.Confidence))
	}
	return nil
}

// Clamp normalizes the action and forces confidence into [0, 1]
func (r *Reply) Clamp() {
	r.ActionNeeded = r.ActionNeeded.Normalize()
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
}

// Classification describes the category assigned to a query
type Classification struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// KnowledgeSnippet is a single retrieved documentation fragment
type KnowledgeSnippet struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// AgentResult is the externally visible unit of work. Every workflow path
// produces one, even on failure.
type AgentResult struct {
	Response       string          `json:"response"`
	ActionNeeded   Action          `json:"action_needed"`
	Confidence     float64         `json:"confidence"`
	Workflow       Workflow        `json:"workflow"`
	Classification *Classification `json:"classification,omitempty"`
	Sources        []string        `json:"sources"`
	CustomerID     string          `json:"customer_id,omitempty"`

	// Diagnostics
	Prompt       string  `json:"llm_prompt,omitempty"`
	Model        string  `json:"llm_model,omitempty"`
	ProcessingMS float64 `json:"processing_time_ms"`
	Error        string  `json:"error,omitempty"`
}
