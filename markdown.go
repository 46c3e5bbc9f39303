package unconsole

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var scriptFenceLangs = map[string]struct{}{
	"js": {}, "javascript": {}, "jsx": {}, "mjs": {}, "cjs": {},
	"ts": {}, "typescript": {}, "tsx": {},
}

type CodeBlock struct {
	Lang       string
	Start, End int
}

// ExtractScriptBlocks returns the byte ranges of fenced js/ts code blocks whose lines are
// contiguous in source. Blocks nested in quotes or lists carry prefixes between lines
// and are skipped.
func ExtractScriptBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		lang := strings.ToLower(string(fenced.Language(source)))
		if _, ok := scriptFenceLangs[lang]; !ok {
			return ast.WalkSkipChildren, nil
		}

		lines := fenced.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		for i := 1; i < lines.Len(); i++ {
			if lines.At(i-1).Stop != lines.At(i).Start || lines.At(i).Padding > 0 {
				return ast.WalkSkipChildren, nil
			}
		}
		if lines.At(0).Padding > 0 {
			return ast.WalkSkipChildren, nil
		}

		blocks = append(blocks, CodeBlock{
			Lang:  lang,
			Start: lines.At(0).Start,
			End:   lines.At(lines.Len() - 1).Stop,
		})
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// StripMarkdown applies rs inside fenced script blocks only; prose and other blocks are
// returned byte for byte.
func StripMarkdown(rs RuleSet, source string) (string, int, error) {
	blocks, err := ExtractScriptBlocks([]byte(source))
	if err != nil {
		return source, 0, err
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start > blocks[j].Start })

	out, total := source, 0
	for _, b := range blocks {
		stripped, n := rs.Strip(out[b.Start:b.End])
		out = out[:b.Start] + stripped + out[b.End:]
		total += n
	}
	return out, total, nil
}
