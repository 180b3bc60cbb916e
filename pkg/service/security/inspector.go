// Package security screens incoming queries for prompt-injection and
// goal-hijacking signatures. Inspection is advisory instrumentation: it
// feeds a bounded event log and the log sink, and never blocks the main
// answer path.
package security

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/omnitech/supportagent/pkg/model"
	"github.com/omnitech/supportagent/pkg/utils/logging"
	"github.com/omnitech/supportagent/pkg/utils/ring"
)

const (
	eventLogCap   = 50
	queryTruncate = 200
)

// Pattern is one injection signature with its assigned severity
type Pattern struct {
	Name     string
	Severity model.Severity
	re       *regexp.Regexp
}

// DefaultPatterns is the fixed signature table. Severity comes from this
// table, not from any scoring.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "ignore_instructions", Severity: model.SeverityHigh,
			re: regexp.MustCompile(`(?i)ignore\s+(all\s+|any\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`)},
		{Name: "disregard_rules", Severity: model.SeverityHigh,
			re: regexp.MustCompile(`(?i)disregard\s+.{0,30}(instructions|rules|guidelines)`)},
		{Name: "reveal_prompt", Severity: model.SeverityHigh,
			re: regexp.MustCompile(`(?i)(reveal|show|print)\s+.{0,30}(system\s+prompt|your\s+instructions)`)},
		{Name: "override_safety", Severity: model.SeverityHigh,
			re: regexp.MustCompile(`(?i)override\s+.{0,20}(safety|security|restrictions)`)},
		{Name: "role_hijack", Severity: model.SeverityMedium,
			re: regexp.MustCompile(`(?i)(you\s+are\s+now|pretend\s+(to\s+be|you\s+are)|act\s+as\s+(if|a|an)\s)`)},
		{Name: "jailbreak", Severity: model.SeverityMedium,
			re: regexp.MustCompile(`(?i)(jailbreak|dan\s+mode|developer\s+mode)`)},
		{Name: "prompt_probe", Severity: model.SeverityLow,
			re: regexp.MustCompile(`(?i)(system\s+prompt|hidden\s+instructions|initial\s+prompt)`)},
	}
}

// Inspection is the advisory outcome of screening one query
type Inspection struct {
	Flagged         bool
	MatchedPatterns []string
	RiskLevel       model.Severity
}

// Inspector screens queries against the signature table and keeps the
// bounded event log. Owned by a single orchestrator.
type Inspector struct {
	patterns []Pattern
	events   *ring.Buffer[model.SecurityEvent]
}

// New creates an inspector. With no patterns the default table is used.
func New(patterns ...Pattern) *Inspector {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Inspector{
		patterns: patterns,
		events:   ring.New[model.SecurityEvent](eventLogCap),
	}
}

// Inspect screens a query. When any pattern matches, a SecurityEvent is
// appended to the bounded log and mirrored to the log sink; the risk level
// is the highest severity among matched patterns.
func (i *Inspector) Inspect(ctx context.Context, query, customerID string) Inspection {
	result := Inspection{RiskLevel: model.SeverityLow}

	for _, p := range i.patterns {
		if p.re.MatchString(query) {
			result.MatchedPatterns = append(result.MatchedPatterns, p.Name)
			result.RiskLevel = model.MaxSeverity(result.RiskLevel, p.Severity)
		}
	}
	result.Flagged = len(result.MatchedPatterns) > 0

	if result.Flagged {
		truncated := truncateRunes(query, queryTruncate)
		event := model.SecurityEvent{
			Timestamp:  time.Now(),
			EventType:  "suspicious_input",
			Severity:   result.RiskLevel,
			Details:    "detected patterns: " + strings.Join(result.MatchedPatterns, ", "),
			Query:      truncated,
			CustomerID: customerID,
		}
		i.events.Push(event)

		logger := logging.From(ctx)
		if result.RiskLevel == model.SeverityHigh {
			logger.Warn("suspicious input detected",
				"severity", result.RiskLevel, "patterns", result.MatchedPatterns)
		} else {
			logger.Info("suspicious input detected",
				"severity", result.RiskLevel, "patterns", result.MatchedPatterns)
		}
	}

	return result
}

// truncateRunes caps s at limit characters without splitting a rune
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Events returns the retained security events, oldest first
func (i *Inspector) Events() []model.SecurityEvent {
	return i.events.Items()
}

// ClearEvents empties the event log
func (i *Inspector) ClearEvents() {
	i.events.Clear()
}
