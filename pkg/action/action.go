// Package action extracts typed action requests embedded in freeform
// conversational text.
//
// # Grammar
//
// An action span is delimited by literal markers:
//
//	[ACTION:<KIND>] body [/ACTION]
//
// KIND is one or more ASCII letters, digits or underscores. The body runs to
// the nearest closing marker, across newlines. Markers do not nest: an inner
// opener is ordinary body text and the first closer ends the outer span.
//
// Recognized kinds are CODE, TERMINAL, NOTE and DIAGRAM. A CODE body is
// searched for a fenced block (```lang … ```); other bodies are taken verbatim
// after trimming.
//
// Every matched span is removed from the returned message, including spans of
// unknown kind, which produce no [Action]. An opener without a closer is left
// untouched and produces nothing. Neither case is an error; both are reported
// in [Result.Dropped] for diagnostics.
package action

// Kind identifies the type of content an action asks for.
type Kind string

// Recognized action kinds.
const (
	KindCode     Kind = "CODE"
	KindTerminal Kind = "TERMINAL"
	KindNote     Kind = "NOTE"
	KindDiagram  Kind = "DIAGRAM"
)

// DefaultLanguage is the language of a CODE action without a fence tag.
const DefaultLanguage = "text"

// Kinds lists every recognized kind in a stable order.
var Kinds = []Kind{KindCode, KindTerminal, KindNote, KindDiagram}

var knownKinds = map[Kind]bool{
	KindCode:     true,
	KindTerminal: true,
	KindNote:     true,
	KindDiagram:  true,
}

// Known reports whether k is a recognized kind.
func Known(k Kind) bool { return knownKinds[k] }

// Action is one parsed instruction. Exactly one of Code or Text is set,
// depending on Kind.
type Action struct {
	Kind Kind         `json:"kind"`
	Code *CodePayload `json:"code,omitempty"`
	Text string       `json:"text,omitempty"`
}

// CodePayload is the payload of a CODE action.
type CodePayload struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Body returns the textual content of the action regardless of kind.
func (a Action) Body() string {
	if a.Code != nil {
		return a.Code.Code
	}
	return a.Text
}

// DropReason explains why a marker produced no action.
type DropReason string

// Drop reasons.
const (
	DropUnknownKind  DropReason = "unknown_kind"
	DropUnterminated DropReason = "unterminated"
)

// Dropped records a marker that produced no action.
type Dropped struct {
	Kind   string     `json:"kind"`
	Reason DropReason `json:"reason"`
	Offset int        `json:"offset"` // byte offset of the opener in the input
}

// Result is the output of [Parse].
type Result struct {
	CleanedMessage string    `json:"cleaned_message"`
	Actions        []Action  `json:"actions"`
	Dropped        []Dropped `json:"dropped,omitempty"`
}
