package agent

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/support.md
var supportPromptRaw string

//go:embed prompt/rag.md
var ragPromptRaw string

var (
	supportPromptTmpl = template.Must(template.New("support").Parse(supportPromptRaw))
	ragPromptTmpl     = template.Must(template.New("rag").Parse(ragPromptRaw))
)

// promptInput carries every field the prompt templates can reference.
// Unused fields render as empty sections.
type promptInput struct {
	Customer    string
	History     string
	Description string
	Template    string
	Knowledge   string
	Query       string
}

func buildPrompt(tmpl *template.Template, input promptInput) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, input); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt", goerr.V("template", tmpl.Name()))
	}
	return sb.String(), nil
}
