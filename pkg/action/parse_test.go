package action

import (
	"reflect"
	"testing"
)

func TestParseNoMarkers(t *testing.T) {
	inputs := []string{
		"",
		"just some text",
		"  leading and trailing whitespace  \n\n",
		"mentions [ACTION: but never opens",
		"a lone closer [/ACTION] stays",
	}
	for _, in := range inputs {
		res := Parse(in)
		if res.CleanedMessage != in {
			t.Errorf("Parse(%q).CleanedMessage = %q, want input unchanged", in, res.CleanedMessage)
		}
		if len(res.Actions) != 0 {
			t.Errorf("Parse(%q).Actions = %v, want empty", in, res.Actions)
		}
		if res.Actions == nil {
			t.Errorf("Parse(%q).Actions is nil, want empty slice", in)
		}
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLang string
		wantCode string
	}{
		{
			name:     "fenced with language",
			input:    "Here:\n[ACTION:CODE]\n```go\nfunc main() {}\n```\n[/ACTION]",
			wantLang: "go",
			wantCode: "func main() {}",
		},
		{
			name:     "fenced without language",
			input:    "[ACTION:CODE]```\n  x = 1\n```[/ACTION]",
			wantLang: "text",
			wantCode: "x = 1",
		},
		{
			name:     "no fence",
			input:    "[ACTION:CODE]\n   print('hi')   \n[/ACTION]",
			wantLang: "text",
			wantCode: "print('hi')",
		},
		{
			name:     "unclosed fence",
			input:    "[ACTION:CODE]```python\nprint(1)[/ACTION]",
			wantLang: "text",
			wantCode: "```python\nprint(1)",
		},
		{
			name:     "language with symbols",
			input:    "[ACTION:CODE]```c++\nint main();\n```[/ACTION]",
			wantLang: "c++",
			wantCode: "int main();",
		},
		{
			name:     "text around fence ignored",
			input:    "[ACTION:CODE]intro\n```js\nlet a;\n```\noutro[/ACTION]",
			wantLang: "js",
			wantCode: "let a;",
		},
		{
			name:     "first fence wins",
			input:    "[ACTION:CODE]```sh\nls\n```\n```py\npass\n```[/ACTION]",
			wantLang: "sh",
			wantCode: "ls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.input)
			if len(res.Actions) != 1 {
				t.Fatalf("got %d actions, want 1", len(res.Actions))
			}
			a := res.Actions[0]
			if a.Kind != KindCode || a.Code == nil {
				t.Fatalf("action = %+v, want CODE with payload", a)
			}
			if a.Code.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", a.Code.Language, tt.wantLang)
			}
			if a.Code.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", a.Code.Code, tt.wantCode)
			}
		})
	}
}

func TestParseTextKinds(t *testing.T) {
	input := "Setup:\n" +
		"[ACTION:TERMINAL]\n$ go test ./...\nok\n[/ACTION]\n" +
		"[ACTION:NOTE]  remember the cache  [/ACTION]\n" +
		"[ACTION:DIAGRAM]digraph { a -> b }[/ACTION]\n" +
		"Done."

	res := Parse(input)
	want := []Action{
		{Kind: KindTerminal, Text: "$ go test ./...\nok"},
		{Kind: KindNote, Text: "remember the cache"},
		{Kind: KindDiagram, Text: "digraph { a -> b }"},
	}
	if !reflect.DeepEqual(res.Actions, want) {
		t.Errorf("Actions = %+v, want %+v", res.Actions, want)
	}
	if res.CleanedMessage != "Setup:\n\nDone." {
		t.Errorf("CleanedMessage = %q", res.CleanedMessage)
	}
}

func TestParseUnknownKindStripped(t *testing.T) {
	res := Parse("before [ACTION:CHART]bars[/ACTION] after")
	if len(res.Actions) != 0 {
		t.Errorf("Actions = %v, want none", res.Actions)
	}
	if res.CleanedMessage != "before  after" {
		t.Errorf("CleanedMessage = %q, want span removed", res.CleanedMessage)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Reason != DropUnknownKind || res.Dropped[0].Kind != "CHART" {
		t.Errorf("Dropped = %+v", res.Dropped)
	}
}

func TestParseKindIsCaseSensitive(t *testing.T) {
	res := Parse("[ACTION:code]x[/ACTION]")
	if len(res.Actions) != 0 {
		t.Errorf("lowercase kind should not be recognized: %+v", res.Actions)
	}
	if res.CleanedMessage != "" {
		t.Errorf("CleanedMessage = %q, want span stripped", res.CleanedMessage)
	}
}

func TestParseUnterminated(t *testing.T) {
	in := "hello [ACTION:NOTE] never closed"
	res := Parse(in)
	if res.CleanedMessage != in {
		t.Errorf("CleanedMessage = %q, want untouched", res.CleanedMessage)
	}
	if len(res.Actions) != 0 {
		t.Errorf("Actions = %v, want none", res.Actions)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Reason != DropUnterminated || res.Dropped[0].Offset != 6 {
		t.Errorf("Dropped = %+v", res.Dropped)
	}
}

func TestParseUnterminatedAfterMatch(t *testing.T) {
	res := Parse("[ACTION:NOTE]a[/ACTION] tail [ACTION:CODE] open")
	if len(res.Actions) != 1 || res.Actions[0].Text != "a" {
		t.Fatalf("Actions = %+v", res.Actions)
	}
	if res.CleanedMessage != "tail [ACTION:CODE] open" {
		t.Errorf("CleanedMessage = %q", res.CleanedMessage)
	}
}

func TestParseInvalidOpenerIsText(t *testing.T) {
	in := "[ACTION:] and [ACTION:TWO WORDS] stay"
	res := Parse(in)
	if res.CleanedMessage != in || len(res.Actions) != 0 {
		t.Errorf("Parse(%q) = %+v, want unchanged", in, res)
	}
}

// Markers do not nest: the first closer ends the outer span and the rest of
// the text, including the second closer, is left in the message.
func TestParseNestedFirstCloserWins(t *testing.T) {
	res := Parse("[ACTION:NOTE]outer [ACTION:CODE]inner[/ACTION] tail[/ACTION]")
	if len(res.Actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(res.Actions))
	}
	if got := res.Actions[0]; got.Kind != KindNote || got.Text != "outer [ACTION:CODE]inner" {
		t.Errorf("action = %+v", got)
	}
	if res.CleanedMessage != "tail[/ACTION]" {
		t.Errorf("CleanedMessage = %q", res.CleanedMessage)
	}
}

func TestParseOrderPreserved(t *testing.T) {
	res := Parse("[ACTION:NOTE]1[/ACTION][ACTION:TERMINAL]2[/ACTION][ACTION:NOTE]3[/ACTION]")
	var bodies []string
	for _, a := range res.Actions {
		bodies = append(bodies, a.Body())
	}
	if !reflect.DeepEqual(bodies, []string{"1", "2", "3"}) {
		t.Errorf("bodies = %v", bodies)
	}
	if res.CleanedMessage != "" {
		t.Errorf("CleanedMessage = %q, want empty", res.CleanedMessage)
	}
}

func TestKnown(t *testing.T) {
	for _, k := range Kinds {
		if !Known(k) {
			t.Errorf("Known(%q) = false", k)
		}
	}
	if Known("CHART") {
		t.Error("Known(CHART) = true")
	}
}
