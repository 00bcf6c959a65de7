package synth

import (
	"slices"
	"strings"

	"github.com/matzehuels/canvasflow/pkg/errors"
)

// Swatch is a (background, border, foreground) color triple.
type Swatch struct {
	Background string `json:"background"`
	Border     string `json:"border"`
	Foreground string `json:"foreground"`
}

// DefaultNoteColor is used when no note color is requested.
const DefaultNoteColor = "yellow"

// NotePalette maps note color names to swatches.
var NotePalette = map[string]Swatch{
	"yellow": {Background: "#fff9db", Border: "#fab005", Foreground: "#5c3c00"},
	"pink":   {Background: "#fff0f6", Border: "#e64980", Foreground: "#5c0a2e"},
	"blue":   {Background: "#e7f5ff", Border: "#228be6", Foreground: "#0b3d66"},
	"green":  {Background: "#ebfbee", Border: "#40c057", Foreground: "#173d1f"},
	"purple": {Background: "#f3f0ff", Border: "#7950f2", Foreground: "#2b1a66"},
	"orange": {Background: "#fff4e6", Border: "#fd7e14", Foreground: "#5c2d00"},
}

// NoteColors lists the note color names in sorted order.
func NoteColors() []string {
	names := make([]string, 0, len(NotePalette))
	for k := range NotePalette {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// NoteSwatch resolves a note color name, case-insensitively. The empty name
// selects [DefaultNoteColor].
func NoteSwatch(name string) (Swatch, error) {
	if name == "" {
		name = DefaultNoteColor
	}
	s, ok := NotePalette[strings.ToLower(name)]
	if !ok {
		return Swatch{}, errors.New(errors.ErrCodeInvalidColor,
			"invalid note color: %q (must be one of: %s)", name, strings.Join(NoteColors(), ", "))
	}
	return s, nil
}

// Role is a conversational participant.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// RolePalette maps roles to bubble swatches.
var RolePalette = map[Role]Swatch{
	RoleUser:      {Background: "#228be6", Border: "#1c7ed6", Foreground: "#ffffff"},
	RoleAssistant: {Background: "#f1f3f5", Border: "#dee2e6", Foreground: "#212529"},
	RoleSystem:    {Background: "#fff3bf", Border: "#fab005", Foreground: "#5c3c00"},
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(s))
	if _, ok := RolePalette[r]; !ok {
		return "", errors.New(errors.ErrCodeInvalidRole,
			"invalid role: %q (must be one of: user, assistant, system)", s)
	}
	return r, nil
}

// Label returns the caption drawn above a bubble.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}

// Fixed container colors.
var (
	codeSwatch     = Swatch{Background: "#1e1e1e", Border: "#3c3c3c", Foreground: "#d4d4d4"}
	codeHeaderText = "#9cdcfe"
	terminalSwatch = Swatch{Background: "#0c0c0c", Border: "#333333", Foreground: "#33ff66"}
	terminalBar    = "#2d2d2d"
	terminalTitle  = "#bbbbbb"
	diagramSwatch  = Swatch{Background: "#ffffff", Border: "#495057", Foreground: "#212529"}
)
