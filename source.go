package unconsole

import (
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// SourceProvider supplies filter-mode input: piped stdin when present, otherwise the
// system clipboard.
type SourceProvider struct {
	stdin     *os.File
	readClip  func() (string, error)
	writeClip func(string) error
}

func NewSourceProvider() *SourceProvider {
	return &SourceProvider{
		stdin:     os.Stdin,
		readClip:  clipboard.ReadAll,
		writeClip: clipboard.WriteAll,
	}
}

// GetContent returns the input and whether it came from the clipboard.
func (sp *SourceProvider) GetContent() (string, bool, error) {
	if sp.stdin != nil {
		if stat, err := sp.stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
			c, err := io.ReadAll(sp.stdin)
			if err != nil {
				return "", false, err
			}
			return string(c), false, nil
		}
	}

	c, err := sp.readClip()
	if err != nil {
		return "", true, err
	}
	return c, true, nil
}

func (sp *SourceProvider) WriteClipboard(s string) error {
	return sp.writeClip(s)
}
