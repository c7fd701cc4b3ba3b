package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/notes"
)

// NoResultsText is the fixed tool result returned when a corpus search
// matches nothing.
const NoResultsText = "No relevant notes found."

// SearchNotesTool exposes the note corpus search to the model. Matched notes
// are recorded on the turn context so the final answer can cite them.
type SearchNotesTool struct {
	manager notes.Manager
}

var _ Tool = (*SearchNotesTool)(nil)

// NewSearchNotesTool creates a search tool over the given note corpus.
func NewSearchNotesTool(manager notes.Manager) *SearchNotesTool {
	return &SearchNotesTool{manager: manager}
}

// Name implements Tool.
func (t *SearchNotesTool) Name() string { return "search_notes" }

// Description implements Tool.
func (t *SearchNotesTool) Description() string {
	return "Search the user's notes for content relevant to a query. Returns matching note titles and contents."
}

// Parameters implements Tool.
func (t *SearchNotesTool) Parameters() *core.Schema {
	return &core.Schema{
		Type: core.SchemaObject,
		Properties: map[string]*core.Schema{
			"query": {
				Type:        core.SchemaString,
				Description: "The search query to match against note titles and contents.",
			},
		},
		Required: []string{"query"},
	}
}

// Call implements Tool. The result text enumerates every matched note's title
// and content; when nothing matches the fixed NoResultsText is returned. As a
// side effect the matched notes are recorded as source notes for the turn.
func (t *SearchNotesTool) Call(ctx context.Context, toolCtx *Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)

	results, err := t.manager.SearchCorpus(ctx, query)
	if err != nil {
		return "", NewToolError(t.Name(), fmt.Sprintf("corpus search failed: %v", err), "EXECUTION_ERROR")
	}

	if len(results) == 0 {
		toolCtx.Logger().Debug("tool.search_notes.empty", "query", query)
		return NoResultsText, nil
	}

	sources := make([]core.SourceNote, 0, len(results))
	var sb strings.Builder
	for i, res := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Note: %s\n%s", res.Note.Title, res.Note.Content)
		sources = append(sources, core.SourceNote{ID: res.Note.ID, Title: res.Note.Title})
	}
	toolCtx.RecordSourceNotes(sources...)

	toolCtx.Logger().Debug("tool.search_notes.hit", "query", query, "count", len(results))

	return sb.String(), nil
}
