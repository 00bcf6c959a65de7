package synth

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 4

// Extent is the text footprint used for sizing: the widest line in display
// cells and the number of lines.
type Extent struct {
	Columns int
	Lines   int
}

// Measure returns the extent of s. Tabs count as four cells and an empty
// string is one empty line.
func Measure(s string) Extent {
	lines := strings.Split(expandTabs(s), "\n")
	e := Extent{Lines: len(lines)}
	for _, l := range lines {
		e.Columns = max(e.Columns, runewidth.StringWidth(l))
	}
	return e
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// Wrap breaks prose so that no line is wider than cols display cells.
// Existing line breaks are kept, runs of spaces inside a paragraph collapse,
// and a single word wider than cols is split by cell count.
func Wrap(s string, cols int) string {
	if cols <= 0 {
		return s
	}
	paragraphs := strings.Split(s, "\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, wrapParagraph(p, cols)...)
	}
	return strings.Join(out, "\n")
}

func wrapParagraph(p string, cols int) []string {
	words := strings.Fields(p)
	if len(words) == 0 {
		return []string{""}
	}

	var (
		lines []string
		cur   strings.Builder
		width int
	)
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		width = 0
	}
	for _, w := range words {
		ww := runewidth.StringWidth(w)
		if ww > cols {
			if width > 0 {
				flush()
			}
			chunks := strings.Split(runewidth.Wrap(w, cols), "\n")
			lines = append(lines, chunks[:len(chunks)-1]...)
			last := chunks[len(chunks)-1]
			cur.WriteString(last)
			width = runewidth.StringWidth(last)
			continue
		}
		switch {
		case width == 0:
			cur.WriteString(w)
			width = ww
		case width+1+ww <= cols:
			cur.WriteByte(' ')
			cur.WriteString(w)
			width += 1 + ww
		default:
			flush()
			cur.WriteString(w)
			width = ww
		}
	}
	flush()
	return lines
}
