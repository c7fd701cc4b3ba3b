package core

// Command is a named conversation shortcut. Definition is free text used to
// seed agent instructions for the turn that invoked the command. Built-ins
// are process-wide constants; custom commands are created once and never
// mutated or deleted.
type Command struct {
	Name        string `json:"name"`
	Params      string `json:"params"`
	Description string `json:"description"`
	Definition  string `json:"definition"`
	IsCustom    bool   `json:"is_custom"`
}
