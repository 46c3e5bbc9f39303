package unconsole

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScriptBlocks(t *testing.T) {
	src := "# Title\n\n```js\nconsole.log(1);\n```\n\n```python\nprint(1)\n```\n\n```TSX\nconst a = 1;\n```\n"

	blocks, err := ExtractScriptBlocks([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "js", blocks[0].Lang)
	assert.Equal(t, "console.log(1);\n", src[blocks[0].Start:blocks[0].End])
	assert.Equal(t, "tsx", blocks[1].Lang)
	assert.Equal(t, "const a = 1;\n", src[blocks[1].Start:blocks[1].End])
}

func TestStripMarkdown(t *testing.T) {
	src := "Use `console.log(x)` to debug.\n\n" +
		"```javascript\nconsole.log(\"a\");\nrun();\nconsole.debug(2);\n```\n\n" +
		"console.log(\"prose\");\n\n" +
		"```sh\nconsole.log(1);\n```\n\n" +
		"```ts\nconsole.error(\"keep\");\n```\n"

	want := "Use `console.log(x)` to debug.\n\n" +
		"```javascript\nrun();\n```\n\n" +
		"console.log(\"prose\");\n\n" +
		"```sh\nconsole.log(1);\n```\n\n" +
		"```ts\nconsole.error(\"keep\");\n```\n"

	got, removed, err := StripMarkdown(DefaultRules(), src)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StripMarkdown() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, removed)

	again, n, err := StripMarkdown(DefaultRules(), got)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Zero(t, n)
}

func TestStripMarkdownSkipsQuotedBlocks(t *testing.T) {
	src := "> ```js\n> console.log(1);\n> x();\n> ```\n"

	got, removed, err := StripMarkdown(DefaultRules(), src)
	require.NoError(t, err)
	assert.Equal(t, src, got)
	assert.Zero(t, removed)
}
