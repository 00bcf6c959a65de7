package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// statusOut receives everything except command results, so stdout can be
// piped as JSON.
var statusOut io.Writer = os.Stderr

// Palette.
var (
	colorAccent = lipgloss.Color("#4dabf7")
	colorOK     = lipgloss.Color("#40c057")
	colorWarn   = lipgloss.Color("#fab005")
	colorFail   = lipgloss.Color("#fa5252")
	colorText   = lipgloss.Color("#f1f3f5")
	colorMuted  = lipgloss.Color("#868e96")
	colorFaint  = lipgloss.Color("#495057")
	colorCode   = lipgloss.Color("#845ef7")
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleDim     = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue   = lipgloss.NewStyle().Foreground(colorText)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)
	StyleError   = lipgloss.NewStyle().Foreground(colorFail)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleIconError   = lipgloss.NewStyle().Foreground(colorFail)
	styleKey         = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorAccent)

	kindStyles = map[string]lipgloss.Style{
		"CODE":     lipgloss.NewStyle().Foreground(colorCode),
		"TERMINAL": lipgloss.NewStyle().Foreground(colorOK),
		"NOTE":     lipgloss.NewStyle().Foreground(colorWarn),
		"DIAGRAM":  lipgloss.NewStyle().Foreground(colorAccent),
		"CHAT":     lipgloss.NewStyle().Foreground(colorMuted),
	}
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// status prints one icon-prefixed line to statusOut.
func status(icon string, iconStyle lipgloss.Style, msgStyle *lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if msgStyle != nil {
		msg = msgStyle.Render(msg)
	}
	fmt.Fprintln(statusOut, iconStyle.Render(icon)+" "+msg)
}

var (
	styleOK    = lipgloss.NewStyle().Foreground(colorOK)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
)

func printSuccess(format string, args ...any) { status(iconSuccess, styleOK, nil, format, args...) }
func printError(format string, args ...any)   { status(iconError, styleIconError, nil, format, args...) }
func printInfo(format string, args ...any)    { status(iconInfo, styleMuted, nil, format, args...) }

func printWarning(format string, args ...any) {
	status(iconWarning, StyleWarning, &StyleWarning, format, args...)
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path of a written file.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(statusOut, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(statusOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(statusOut) }

// kindBadge renders a group kind in lower case and its color.
func kindBadge(kind string) string {
	label := strings.ToLower(kind)
	if st, ok := kindStyles[kind]; ok {
		return st.Render(label)
	}
	return label
}
