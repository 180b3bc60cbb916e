package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/omnitech/supportagent/pkg/model"
	"github.com/omnitech/supportagent/pkg/utils/logging"
)

// runClassification handles queries matched to a known support topic. The
// locally assigned category seeds the flow; the host may refine it, and
// every host failure along the way degrades to defaults.
func (a *Agent) runClassification(ctx context.Context, query, customerID, category string) *model.AgentResult {
	customer := a.customerContext(ctx, customerID)

	classification := &model.Classification{Category: category}
	if r := a.gateway.Call(ctx, toolClassify, map[string]any{"user_query": query}); r.OK() {
		if suggested := r.Str("suggested_query"); suggested != "" {
			classification.Category = suggested
		}
		classification.Confidence = r.Num("confidence")
	}
	classification.Description = classification.Category

	responseTemplate := ""
	if r := a.gateway.Call(ctx, toolTemplate, map[string]any{"query_name": classification.Category}); r.OK() {
		responseTemplate = r.Str("template")
		if d := r.Str("description"); d != "" {
			classification.Description = d
		}
	}

	knowledge := "No documentation found."
	sources := []string{}
	if r := a.gateway.Call(ctx, toolKnowledge, map[string]any{
		"category":    classification.Category,
		"query":       query,
		"max_results": knowledgeResultsMax,
	}); r.OK() {
		if k := r.Str("knowledge"); k != "" {
			knowledge = k
		}
		sources = append(sources, r.Strings("sources")...)
	}

	prompt, err := buildPrompt(supportPromptTmpl, promptInput{
		Customer:    customer,
		History:     a.window.Context(),
		Description: classification.Description,
		Template:    responseTemplate,
		Knowledge:   knowledge,
		Query:       query,
	})
	if err != nil {
		return a.failed(ctx, model.WorkflowClassification, err)
	}

	reply := a.generate(ctx, prompt)
	substituteSentinel(reply, "Based on our "+classification.Description+":", knowledge)

	return &model.AgentResult{
		Response:       reply.Response,
		ActionNeeded:   reply.ActionNeeded,
		Confidence:     reply.Confidence,
		Workflow:       model.WorkflowClassification,
		Classification: classification,
		Sources:        sources,
		Prompt:         prompt,
	}
}

// runDirectRAG handles open-ended queries through full-corpus search
func (a *Agent) runDirectRAG(ctx context.Context, query, customerID string) *model.AgentResult {
	customer := a.customerContext(ctx, customerID)

	snippets := a.searchKnowledge(ctx, query, searchResultsMax)
	if len(snippets) == 0 {
		return &model.AgentResult{
			Response:     msgNoMatches,
			ActionNeeded: model.ActionNone,
			Confidence:   confNoMatches,
			Workflow:     model.WorkflowDirectRAG,
			Sources:      []string{},
		}
	}

	top := snippets
	if len(top) > searchTopN {
		top = top[:searchTopN]
	}

	blocks := make([]string, 0, len(top))
	sources := []string{}
	seen := map[string]bool{}
	for _, s := range top {
		blocks = append(blocks, s.Content)
		if s.Source != "" && !seen[s.Source] {
			seen[s.Source] = true
			sources = append(sources, s.Source)
		}
	}
	knowledge := strings.Join(blocks, "\n\n---\n\n")

	prompt, err := buildPrompt(ragPromptTmpl, promptInput{
		Customer:  customer,
		History:   a.window.Context(),
		Knowledge: knowledge,
		Query:     query,
	})
	if err != nil {
		return a.failed(ctx, model.WorkflowDirectRAG, err)
	}

	reply := a.generate(ctx, prompt)
	substituteSentinel(reply, "Here's what I found:", knowledge)

	return &model.AgentResult{
		Response:     reply.Response,
		ActionNeeded: reply.ActionNeeded,
		Confidence:   reply.Confidence,
		Workflow:     model.WorkflowDirectRAG,
		Sources:      sources,
		Prompt:       prompt,
	}
}

// searchKnowledge queries the host's search tool when advertised, falling
// back to the local retriever. Both paths failing yields no snippets, not
// an error.
func (a *Agent) searchKnowledge(ctx context.Context, query string, limit int) []*model.KnowledgeSnippet {
	if a.gateway.Has(toolSearch) {
		r := a.gateway.Call(ctx, toolSearch, map[string]any{"query": query, "max_results": limit})
		if r.OK() {
			out := make([]*model.KnowledgeSnippet, 0)
			for _, m := range r.Objects("matches") {
				content, _ := m["content"].(string)
				source, _ := m["source"].(string)
				if content != "" {
					out = append(out, &model.KnowledgeSnippet{Content: content, Source: source})
				}
			}
			return out
		}
		logging.From(ctx).Warn("host search failed, trying local retriever", "error", r.Err)
	}

	if a.knowledge == nil {
		return nil
	}
	snippets, err := a.knowledge.Search(ctx, query, limit)
	if err != nil {
		logging.From(ctx).Warn("local knowledge search failed", "error", err)
		return nil
	}
	return snippets
}

// customerContext renders the customer line for the prompt. Lookup is best
// effort: without the tool the customer is reported as unknown.
func (a *Agent) customerContext(ctx context.Context, customerID string) string {
	if customerID == "" {
		return ""
	}
	if !a.gateway.Has(toolLookup) {
		return "Customer: Unknown"
	}

	r := a.gateway.Call(ctx, toolLookup, map[string]any{"email": customerID})
	if !r.OK() {
		return "Customer: Unknown"
	}
	if !r.Bool("found") {
		return fmt.Sprintf("Customer: %s (not in database)", customerID)
	}

	name := r.Str("name")
	if name == "" {
		name = "Unknown"
	}
	tier := r.Str("tier")
	if tier == "" {
		tier = "Standard"
	}
	line := fmt.Sprintf("Customer: %s (%s tier)", name, tier)
	if tickets := int(r.Num("support_tickets")); tickets > 0 {
		line += fmt.Sprintf(" - %d previous tickets", tickets)
	}
	return line
}

// failed produces the generic failure result for a workflow-level error
func (a *Agent) failed(ctx context.Context, workflow model.Workflow, err error) *model.AgentResult {
	logging.From(ctx).Error("workflow failed", "workflow", workflow, "error", err)
	return &model.AgentResult{
		Response:     msgWorkflowFailed,
		ActionNeeded: model.ActionNone,
		Confidence:   confWorkflowFailed,
		Workflow:     workflow,
		Sources:      []string{},
		Error:        err.Error(),
	}
}
