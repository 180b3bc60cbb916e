// Package agent is the per-session orchestrator. It owns one capability
// host session, one conversation window and one security event log, and
// folds every downstream failure into the result it produces: Process
// never returns an error.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/omnitech/supportagent/pkg/adapter"
	"github.com/omnitech/supportagent/pkg/model"
	"github.com/omnitech/supportagent/pkg/repository"
	"github.com/omnitech/supportagent/pkg/service/classify"
	"github.com/omnitech/supportagent/pkg/service/extract"
	"github.com/omnitech/supportagent/pkg/service/memory"
	"github.com/omnitech/supportagent/pkg/service/mcp"
	"github.com/omnitech/supportagent/pkg/service/security"
	"github.com/omnitech/supportagent/pkg/utils/logging"
)

// Tool names the capability host may advertise. Every tool is optional;
// a missing tool degrades the matching feature instead of failing.
const (
	toolClassify  = "classify_query"
	toolTemplate  = "get_query_template"
	toolKnowledge = "get_knowledge_for_query"
	toolSearch    = "search_knowledge"
	toolLookup    = "lookup_customer"
	toolStats     = "get_server_stats"
)

const (
	knowledgeResultsMax  = 3
	searchResultsMax     = 5
	searchTopN           = 3
	substitutionTruncate = 400
)

// Canned replies with their documented confidence values
const (
	msgModelNotConfigured = "I found relevant information in our documentation, but no AI model is configured to compose an answer. Please contact support directly."
	msgWarmingUp          = "The AI model is warming up. Please try again in a moment."
	msgGenerationFailed   = "I'm sorry, I encountered an error while generating a response. Please try again."
	msgEmptyReply         = "I'm sorry, I couldn't generate a proper response."
	msgNoMatches          = "I couldn't find relevant information in our knowledge base. Please try rephrasing your question."
	msgWorkflowFailed     = "I encountered an internal error while handling your question. Please try again."

	confNotConfigured    = 0.5
	confWarmingUp        = 0.5
	confGenerationFailed = 0.3
	confNoMatches        = 0.2
	confSubstitution     = 0.8
	confWorkflowFailed   = 0.1
)

// Agent orchestrates one support session
type Agent struct {
	host        *mcp.Client
	gateway     *mcp.Gateway
	llm         adapter.LLM
	knowledge   repository.Knowledge
	transcripts adapter.Archive

	classifier *classify.Classifier
	inspector  *security.Inspector
	window     *memory.Window

	sessionID string
	seq       int
}

// NewInput carries the orchestrator dependencies. Host is required and its
// ownership transfers to the agent. Everything else is optional: a nil LLM
// yields canned replies, a nil Knowledge disables the local search
// fallback, a nil Transcripts disables archival.
type NewInput struct {
	Host        *mcp.Client
	LLM         adapter.LLM
	Knowledge   repository.Knowledge
	Transcripts adapter.Archive
	Classifier  *classify.Classifier
	Inspector   *security.Inspector
}

// New creates a session orchestrator over an established host session
func New(ctx context.Context, input NewInput) (*Agent, error) {
	if input.Host == nil {
		return nil, goerr.New("capability host client is required")
	}

	if input.Classifier == nil {
		input.Classifier = classify.New()
	}
	if input.Inspector == nil {
		input.Inspector = security.New()
	}

	a := &Agent{
		host:        input.Host,
		gateway:     mcp.NewGateway(input.Host),
		llm:         input.LLM,
		knowledge:   input.Knowledge,
		transcripts: input.Transcripts,
		classifier:  input.Classifier,
		inspector:   input.Inspector,
		window:      memory.New(),
		sessionID:   uuid.NewString(),
	}

	logging.From(ctx).Info("support session started",
		"session", a.sessionID,
		"tools", a.gateway.Tools(),
		"llm_configured", a.llm != nil)

	return a, nil
}

// Close releases the host session. Safe to call multiple times.
func (a *Agent) Close() error {
	return a.host.Close()
}

// SessionID returns the unique identifier of this session
func (a *Agent) SessionID() string {
	return a.sessionID
}

// Process answers one customer query. It always returns a result: failures
// surface as reduced-confidence replies with the Error field set, never as
// a returned error.
func (a *Agent) Process(ctx context.Context, query, customerID string) *model.AgentResult {
	start := time.Now()
	logger := logging.From(ctx)

	a.inspector.Inspect(ctx, query, customerID)

	workflow, category := a.classifier.Classify(query)
	logger.Info("processing query", "workflow", workflow, "category", category)

	var result *model.AgentResult
	if workflow == model.WorkflowClassification {
		result = a.runClassification(ctx, query, customerID, category)
	} else {
		result = a.runDirectRAG(ctx, query, customerID)
	}

	result.CustomerID = customerID
	result.ProcessingMS = float64(time.Since(start).Microseconds()) / 1000.0
	if a.llm != nil {
		result.Model = a.llm.ModelID()
	}

	a.window.Append(query, result.Response)
	a.saveTranscript(ctx, result)

	return result
}

// generate performs the single LLM round-trip and recovers a structured
// reply. Provider absence and provider failures map to canned replies.
func (a *Agent) generate(ctx context.Context, prompt string) *model.Reply {
	if a.llm == nil {
		return &model.Reply{Response: msgModelNotConfigured, ActionNeeded: model.ActionNone, Confidence: confNotConfigured}
	}

	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		if adapter.IsTransient(err) {
			logging.From(ctx).Warn("model temporarily unavailable", "error", err)
			return &model.Reply{Response: msgWarmingUp, ActionNeeded: model.ActionNone, Confidence: confWarmingUp}
		}
		logging.From(ctx).Error("generation failed", "error", err)
		return &model.Reply{Response: msgGenerationFailed, ActionNeeded: model.ActionNone, Confidence: confGenerationFailed}
	}

	reply := extract.Extract(ctx, raw)
	if reply.Response == "" {
		reply.Response = msgEmptyReply
	}
	return reply
}

// substituteSentinel replaces the reserved no-output marker with a
// truncated excerpt of the retrieved documentation
func substituteSentinel(reply *model.Reply, lead, knowledge string) {
	if reply.Response != model.SentinelKnowledgeBaseOnly {
		return
	}
	excerpt := truncateRunes(knowledge, substitutionTruncate)
	reply.Response = lead + "\n\n" + excerpt + "..."
	reply.Confidence = confSubstitution
}

// truncateRunes caps s at limit characters without splitting a rune
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// ServerStats fetches the host's own counters when it exposes them
func (a *Agent) ServerStats(ctx context.Context) (map[string]any, error) {
	if !a.gateway.Has(toolStats) {
		return nil, goerr.New("host does not provide server stats")
	}
	r := a.gateway.Call(ctx, toolStats, map[string]any{})
	if !r.OK() {
		return nil, r.Err
	}
	return r.Payload, nil
}

// ToolCalls returns the retained tool-call records, oldest first
func (a *Agent) ToolCalls() []model.ToolCallRecord {
	return a.gateway.Records()
}

// SecurityEvents returns the retained security events, oldest first
func (a *Agent) SecurityEvents() []model.SecurityEvent {
	return a.inspector.Events()
}

// HistoryLen returns the number of retained conversation exchanges
func (a *Agent) HistoryLen() int {
	return a.window.Len()
}

// ClearHistory empties the conversation window
func (a *Agent) ClearHistory() {
	a.window.Clear()
}

// saveTranscript archives one result under the session prefix. Archival is
// best effort: failures are logged and never affect the answer.
func (a *Agent) saveTranscript(ctx context.Context, result *model.AgentResult) {
	if a.transcripts == nil {
		return
	}

	a.seq++
	key := fmt.Sprintf("transcripts/%s/%04d.json", a.sessionID, a.seq)

	data, err := json.Marshal(result)
	if err != nil {
		logging.From(ctx).Warn("failed to encode transcript", "error", err)
		return
	}
	if err := a.transcripts.Save(ctx, key, data); err != nil {
		logging.From(ctx).Warn("failed to archive transcript", "key", key, "error", err)
	}
}
