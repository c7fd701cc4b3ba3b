package tool

import (
	"context"
	"fmt"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/notes"
)

// CreateNoteTool lets the model create a new note with a title and content.
type CreateNoteTool struct {
	manager notes.Manager
}

var _ Tool = (*CreateNoteTool)(nil)

// NewCreateNoteTool creates a note-creation tool over the given corpus.
func NewCreateNoteTool(manager notes.Manager) *CreateNoteTool {
	return &CreateNoteTool{manager: manager}
}

// Name implements Tool.
func (t *CreateNoteTool) Name() string { return "create_note" }

// Description implements Tool.
func (t *CreateNoteTool) Description() string {
	return "Create a new note with the given title and content in the user's notebook."
}

// Parameters implements Tool.
func (t *CreateNoteTool) Parameters() *core.Schema {
	return &core.Schema{
		Type: core.SchemaObject,
		Properties: map[string]*core.Schema{
			"title": {
				Type:        core.SchemaString,
				Description: "The title of the new note.",
			},
			"content": {
				Type:        core.SchemaString,
				Description: "The body text of the new note.",
			},
		},
		Required: []string{"title", "content"},
	}
}

// Call implements Tool. A new note is created, then its title and content are
// set in a second step, matching the two-phase contract of notes.Manager.
func (t *CreateNoteTool) Call(ctx context.Context, toolCtx *Context, args map[string]any) (string, error) {
	title, _ := args["title"].(string)
	content, _ := args["content"].(string)

	note, err := t.manager.CreateNewTextNote(ctx)
	if err != nil {
		return "", NewToolError(t.Name(), fmt.Sprintf("create note failed: %v", err), "EXECUTION_ERROR")
	}
	if err := t.manager.UpdateNote(ctx, note.ID, notes.Update{Title: &title, Content: &content}); err != nil {
		return "", NewToolError(t.Name(), fmt.Sprintf("update note failed: %v", err), "EXECUTION_ERROR")
	}

	toolCtx.Logger().Info("tool.create_note.created", "note_id", note.ID, "title", title)

	return fmt.Sprintf("Created note %q.", title), nil
}
