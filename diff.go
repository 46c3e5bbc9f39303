package unconsole

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders the change as a unified diff with three lines of context.
func UnifiedDiff(c Change) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(c.Old)),
		B:        difflib.SplitLines(string(c.New)),
		FromFile: "a/" + c.Path,
		ToFile:   "b/" + c.Path,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return out
}

// WriteDiff writes the diff, highlighted for a 256-colour terminal when color is set.
func WriteDiff(w io.Writer, diff string, color bool) error {
	if diff == "" {
		return nil
	}
	if !strings.HasSuffix(diff, "\n") {
		diff += "\n"
	}
	if color {
		if err := quick.Highlight(w, diff, "diff", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := io.WriteString(w, diff)
	return err
}
