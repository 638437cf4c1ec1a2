package classify

import (
	_ "embed"
	"strings"
	"text/template"
)

//go:embed prompts/classify.tmpl
var classifyPromptRaw string

// ClassifyTemplate is the parsed relevance prompt. Parsed once at package
// init; reused on every Classify call.
var ClassifyTemplate = template.Must(template.New("classify").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(classifyPromptRaw))

// promptData is the input to ClassifyTemplate.
type promptData struct {
	Title       string
	Company     string
	Location    string
	Description string
	Keywords    []string
	Excluded    []string
}
