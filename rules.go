package unconsole

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrProtectedMethod = errors.New("protected console method")

var (
	InformationalMethods = []string{"log", "info", "debug"}
	SupplementaryMethods = []string{"time", "timeEnd", "timeLog", "group", "groupCollapsed", "groupEnd", "table"}
)

// Calls to these carry failure-path diagnostics and must survive every rule.
var protectedMethods = map[string]struct{}{
	"error":  {},
	"warn":   {},
	"assert": {},
}

// callArgs matches a single-line argument list without nested parentheses. Parentheses
// are allowed inside string, character and template literals. Anything else (a call
// spanning lines, fn(x) as an argument, a regex literal with an escape) fails to match
// and the call is left intact.
//
// Matching is line based and does not track multi-line template literals or block
// comments. A console.log(...) line sitting inside one of them looks like a statement
// and is removed from the literal or comment text.
const callArgs = `(?:[^()"'\x60\\\n]|"(?:[^"\\\n]|\\.)*"|'(?:[^'\\\n]|\\.)*'|\x60(?:[^\x60\\\n]|\\.)*\x60)*`

var (
	methodNamePattern    = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	controlHeadPattern   = regexp.MustCompile(`^(?:\}\s*)?(?:else\s+)?(?:if|for|while|with)\b`)
	danglingKeywordRegex = regexp.MustCompile(`(?:^|[^\w$])(?:else|do)$`)
)

const utf8BOM = "\ufeff"

// Rule removes standalone console.<method>(...) statements for a fixed set of methods.
type Rule struct {
	Name    string
	Methods []string
	re      *regexp.Regexp
}

func NewRule(name string, methods ...string) (*Rule, error) {
	if len(methods) == 0 {
		return nil, fmt.Errorf("rule %q: no methods", name)
	}
	quoted := make([]string, 0, len(methods))
	for _, m := range methods {
		if _, ok := protectedMethods[m]; ok {
			return nil, fmt.Errorf("rule %q: console.%s: %w", name, m, ErrProtectedMethod)
		}
		if !methodNamePattern.MatchString(m) {
			return nil, fmt.Errorf("rule %q: invalid method name %q", name, m)
		}
		quoted = append(quoted, regexp.QuoteMeta(m))
	}
	re, err := regexp.Compile(`console\.(?:` + strings.Join(quoted, "|") + `)[ \t]*\(` + callArgs + `\)`)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}
	return &Rule{Name: name, Methods: methods, re: re}, nil
}

func mustRule(name string, methods ...string) *Rule {
	r, err := NewRule(name, methods...)
	if err != nil {
		panic(err)
	}
	return r
}

// Apply removes every standalone match in one left-to-right pass and returns the new
// text with the number of statements removed.
func (r *Rule) Apply(src string) (string, int) {
	locs := r.re.FindAllStringIndex(src, -1)
	if len(locs) == 0 {
		return src, 0
	}

	out := make([]byte, 0, len(src))
	last, removed := 0, 0
	for _, loc := range locs {
		out = append(out, src[last:loc[0]]...)
		last = loc[0]
		if !standalone(out) {
			continue
		}

		end := skipBlanks(src, loc[1])
		if !terminated(src, end) {
			continue
		}
		if end < len(src) && src[end] == ';' {
			end = skipBlanks(src, end+1)
		}
		if n := lineBreakAt(src, end); n >= 0 {
			out = bytes.TrimRight(out, " \t")
			if len(out) == 0 || out[len(out)-1] == '\n' {
				end += n
			}
		}
		last = end
		removed++
	}
	out = append(out, src[last:]...)
	return string(out), removed
}

// standalone reports whether a call starting right after out begins its own statement.
func standalone(out []byte) bool {
	i := len(out) - 1
	for i >= 0 && (out[i] == ' ' || out[i] == '\t') {
		i--
	}
	if i < 0 {
		return true
	}
	switch out[i] {
	case ';', '{', '}':
		return true
	case '\n':
		return opensStatement(out[:i])
	}
	return false
}

// opensStatement reports whether the code before a line break leaves the next line free
// to start a new statement. Blank lines and comments are skipped. A line closing a
// parenthesised group is judged by the line the group opens on, so a control head
// wrapped over several lines still guards its body.
func opensStatement(prev []byte) bool {
	for {
		prev = bytes.TrimRight(prev, " \t\r\n")
		if len(prev) == 0 {
			return true
		}
		start := bytes.LastIndexByte(prev, '\n') + 1
		line := codeOf(prev[start:])
		switch {
		case len(line) == 0:
			prev = prev[:start]
			continue
		case bytes.HasSuffix(line, []byte("*/")):
			open := bytes.LastIndex(prev[:start], []byte("/*"))
			if open < 0 {
				return true
			}
			prev = prev[:open]
			continue
		case line[len(line)-1] == ')':
			head, ok := groupHead(prev[:start], line)
			return ok && !controlHeadPattern.Match(head)
		}
		return endsStatement(line)
	}
}

// endsStatement is false when the line is a braceless else/do or an unfinished
// expression, so removing the following line would change what runs.
func endsStatement(line []byte) bool {
	if bytes.HasSuffix(line, []byte("++")) || bytes.HasSuffix(line, []byte("--")) {
		return true
	}
	if danglingKeywordRegex.Match(line) {
		return false
	}
	return strings.IndexByte("=+-*/%&|^!~?:<>,.([", line[len(line)-1]) < 0
}

// groupHead walks back from line, which ends with ')', to the line holding the matching
// '('. It fails when the group is never opened.
func groupHead(before, line []byte) ([]byte, bool) {
	depth := parenDepth(line)
	for depth < 0 {
		before = bytes.TrimRight(before, "\r\n")
		if len(before) == 0 {
			return nil, false
		}
		start := bytes.LastIndexByte(before, '\n') + 1
		line = codeOf(before[start:])
		before = before[:start]
		depth += parenDepth(line)
	}
	return line, true
}

// parenDepth counts '(' minus ')' outside string literals.
func parenDepth(line []byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
	}
	return depth
}

// codeOf trims a line and drops a trailing // or /* comment that is not inside a string.
func codeOf(line []byte) []byte {
	line = bytes.TrimLeft(line, " \t")
	var quote byte
	for i := 0; i+1 < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && line[i+1] == '/':
			return bytes.TrimRight(line[:i], " \t\r")
		case c == '/' && line[i+1] == '*':
			end := bytes.Index(line[i+2:], []byte("*/"))
			if end < 0 {
				return bytes.TrimRight(line[:i], " \t\r")
			}
			rest := i + 2 + end + 2
			if len(bytes.TrimSpace(line[rest:])) == 0 {
				return bytes.TrimRight(line[:i], " \t\r")
			}
			i = rest - 1
		}
	}
	return bytes.TrimRight(line, " \t\r")
}

// terminated reports whether the call ending at i is a complete statement rather than
// part of a longer expression such as console.log(x).then(f) or console.log(x) || y.
func terminated(s string, i int) bool {
	if i == len(s) {
		return true
	}
	switch s[i] {
	case ';', '}', '\n', '\r':
		return true
	}
	rest := s[i:]
	return strings.HasPrefix(rest, "//") || strings.HasPrefix(rest, "/*")
}

func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// lineBreakAt returns the width of the line break at i, 0 at end of input, -1 otherwise.
func lineBreakAt(s string, i int) int {
	switch {
	case i == len(s):
		return 0
	case s[i] == '\n':
		return 1
	case s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n':
		return 2
	}
	return -1
}

// RuleSet applies its rules in order. Later rules see the output of earlier ones.
type RuleSet []*Rule

func DefaultRules() RuleSet {
	return RuleSet{
		mustRule("informational", InformationalMethods...),
		mustRule("supplementary", SupplementaryMethods...),
	}
}

// NewRuleSet builds the built-in rules plus a custom rule for extra methods. Methods
// already covered by an enabled rule are ignored.
func NewRuleSet(extra []string, supplementary bool) (RuleSet, error) {
	rs := RuleSet{mustRule("informational", InformationalMethods...)}
	if supplementary {
		rs = append(rs, mustRule("supplementary", SupplementaryMethods...))
	}

	covered := make(map[string]struct{})
	for _, r := range rs {
		for _, m := range r.Methods {
			covered[m] = struct{}{}
		}
	}
	var custom []string
	for _, m := range extra {
		m = strings.TrimSpace(m)
		if _, ok := covered[m]; ok || m == "" {
			continue
		}
		covered[m] = struct{}{}
		custom = append(custom, m)
	}
	if len(custom) == 0 {
		return rs, nil
	}

	r, err := NewRule("custom", custom...)
	if err != nil {
		return nil, err
	}
	return append(rs, r), nil
}

// Strip applies the rule set until nothing more matches, so Strip(Strip(s)) == Strip(s)
// even when a removal joins text into a new match. A leading BOM is kept untouched.
func (rs RuleSet) Strip(src string) (string, int) {
	bom := strings.HasPrefix(src, utf8BOM)
	text := strings.TrimPrefix(src, utf8BOM)

	total := 0
	for {
		next := text
		for _, r := range rs {
			var n int
			next, n = r.Apply(next)
			total += n
		}
		if next == text {
			break
		}
		text = next
	}

	if bom {
		return utf8BOM + text, total
	}
	return text, total
}
