package action

import (
	"regexp"
	"strings"
)

const (
	openPrefix = "[ACTION:"
	closer     = "[/ACTION]"
	fence      = "```"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Parse extracts every action span from text.
//
// The scanner runs three states per span: seek an opener, capture the body,
// seek the closer. When no span matched, CleanedMessage is text unchanged.
// Otherwise the spans are removed, runs of blank lines left behind are
// collapsed, and the result is trimmed.
func Parse(text string) Result {
	res := Result{Actions: []Action{}}

	var out strings.Builder
	matched := false
	pos := 0 // start of text not yet copied to out
	search := 0

	for {
		open := strings.Index(text[search:], openPrefix)
		if open < 0 {
			break
		}
		open += search

		kind, bodyStart, ok := readOpener(text, open)
		if !ok {
			search = open + 1
			continue
		}

		end := strings.Index(text[bodyStart:], closer)
		if end < 0 {
			// No closer anywhere after this opener, so no later opener can
			// close either.
			res.Dropped = append(res.Dropped, Dropped{Kind: kind, Reason: DropUnterminated, Offset: open})
			break
		}
		end += bodyStart

		body := text[bodyStart:end]
		if a, ok := build(Kind(kind), body); ok {
			res.Actions = append(res.Actions, a)
		} else {
			res.Dropped = append(res.Dropped, Dropped{Kind: kind, Reason: DropUnknownKind, Offset: open})
		}

		out.WriteString(text[pos:open])
		pos = end + len(closer)
		search = pos
		matched = true
	}

	if !matched {
		res.CleanedMessage = text
		return res
	}
	out.WriteString(text[pos:])
	res.CleanedMessage = strings.TrimSpace(blankRuns.ReplaceAllString(out.String(), "\n\n"))
	return res
}

// readOpener reads "[ACTION:KIND]" at i. It returns the kind and the offset
// just past the closing bracket.
func readOpener(text string, i int) (kind string, next int, ok bool) {
	j := i + len(openPrefix)
	start := j
	for j < len(text) && isKindByte(text[j]) {
		j++
	}
	if j == start || j >= len(text) || text[j] != ']' {
		return "", 0, false
	}
	return text[start:j], j + 1, true
}

func isKindByte(c byte) bool {
	return c == '_' || ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

func build(kind Kind, body string) (Action, bool) {
	switch kind {
	case KindCode:
		lang, code := parseCode(body)
		return Action{Kind: kind, Code: &CodePayload{Language: lang, Code: code}}, true
	case KindTerminal, KindNote, KindDiagram:
		return Action{Kind: kind, Text: strings.TrimSpace(body)}, true
	default:
		return Action{}, false
	}
}

// parseCode finds the first fenced block in body. Without a complete fence
// the whole trimmed body is code in the default language.
func parseCode(body string) (lang, code string) {
	open := strings.Index(body, fence)
	if open < 0 {
		return DefaultLanguage, strings.TrimSpace(body)
	}

	i := open + len(fence)
	start := i
	for i < len(body) && isLangByte(body[i]) {
		i++
	}
	lang = body[start:i]

	end := strings.Index(body[i:], fence)
	if end < 0 {
		return DefaultLanguage, strings.TrimSpace(body)
	}

	if lang == "" {
		lang = DefaultLanguage
	}
	return lang, strings.TrimSpace(body[i : i+end])
}

func isLangByte(c byte) bool {
	return isKindByte(c) || c == '+' || c == '#' || c == '.' || c == '-'
}
