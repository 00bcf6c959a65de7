package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/pkg/action"
)

// parseOpts holds the command-line flags for the parse command.
type parseOpts struct {
	text    string // inline reply text instead of a file
	jsonOut bool   // print the parse result as JSON
}

// parseCommand creates the parse command.
func (c *CLI) parseCommand() *cobra.Command {
	var opts parseOpts

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Extract action markers from a reply",
		Long: `Extract [ACTION:<KIND>]...[/ACTION] markers from a reply and print the
parsed actions and the cleaned message.

Examples:
  canvasflow parse reply.txt
  canvasflow parse --text '[ACTION:NOTE]buy milk[/ACTION]'
  cat reply.txt | canvasflow parse - --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(opts.text, args, os.Stdin)
			if err != nil {
				return err
			}
			res := action.Parse(text)
			if opts.jsonOut {
				return writeJSON(os.Stdout, res)
			}
			printParseResult(res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "reply text (instead of a file)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print JSON")

	return cmd
}

// readInput returns inline text if set, otherwise the contents of the file
// named by args[0], or stdin for "-" or no argument.
func readInput(inline string, args []string, stdin io.Reader) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printParseResult(res action.Result) {
	if len(res.Actions) == 0 {
		printInfo("No actions")
	} else {
		printSuccess("Parsed %d action(s)", len(res.Actions))
	}
	for i, a := range res.Actions {
		label := string(a.Kind)
		if a.Code != nil {
			label += " " + StyleDim.Render("("+a.Code.Language+")")
		}
		printKeyValue(fmt.Sprintf("%d. %s", i+1, label), firstLine(a.Body(), 60))
	}
	for _, d := range res.Dropped {
		printWarning("Dropped %s marker at offset %d (%s)", d.Kind, d.Offset, d.Reason)
	}
	if res.CleanedMessage != "" {
		printNewline()
		fmt.Println(res.CleanedMessage)
	}
}

// firstLine returns the first line of s, cut to at most n runes.
func firstLine(s string, n int) string {
	line, rest, _ := strings.Cut(s, "\n")
	r := []rune(line)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	if rest != "" {
		return line + " …"
	}
	return line
}
