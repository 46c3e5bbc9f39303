package unconsole

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferLines(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"lf", "a\nb\n", []string{"a", "b"}},
		{"crlf keeps carriage returns", "a\r\nb\r\n", []string{"a\r", "b\r"}},
		{"bom stays on first line", "\ufeffa\r\nb\r\n", []string{"\ufeffa\r", "b\r"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := bufferLines([]byte(tt.data))
			got := make([]string, len(lines))
			for i, l := range lines {
				got[i] = string(l)
			}
			assert.Equal(t, tt.want, got)

			// With fileformat=unix and nobomb Neovim writes the lines joined by \n.
			if tt.data != "" {
				written := bytes.Join(lines, []byte("\n"))
				if bytes.HasSuffix([]byte(tt.data), []byte("\n")) {
					written = append(written, '\n')
				}
				assert.Equal(t, tt.data, string(written))
			}
		})
	}
}

func TestEscapeFileName(t *testing.T) {
	assert.Equal(t, `/tmp/my\ dir/a\#1\%.js`, escapeFileName("/tmp/my dir/a#1%.js"))
}
