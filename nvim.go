package unconsole

import (
	"bytes"
	"fmt"
	iofs "io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"
)

const undoDir = "~/.local/state/nvim/undo/"

// NvimFS reads and lists through the local disk but routes writes through Neovim
// buffers, so every rewrite lands in the editor's persistent undo history.
type NvimFS struct {
	LocalFS
	v             *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
}

func NewNvimFS() (*NvimFS, error) {
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			return &NvimFS{v: v}, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "unconsole-nvim-")
	if err != nil {
		return nil, err
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("start nvim: %w", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("dial nvim: %w", err)
	}

	n := &NvimFS{v: v, isSelfStarted: true, cmd: cmd, socketPath: socketPath}
	if err := n.configureTempInstance(); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (n *NvimFS) configureTempInstance() error {
	home, _ := os.UserHomeDir()
	expandedUndoDir := strings.Replace(undoDir, "~", home, 1)
	if err := os.MkdirAll(expandedUndoDir, 0755); err != nil {
		return err
	}

	b := n.v.NewBatch()
	b.Command("set undofile")
	b.Command(fmt.Sprintf("set undodir=%s", expandedUndoDir))
	b.Command("set noswapfile")
	return b.Execute()
}

func (n *NvimFS) Close() {
	if n.v != nil {
		n.v.Close()
	}
	if n.isSelfStarted && n.cmd != nil && n.cmd.Process != nil {
		n.cmd.Process.Kill()
		n.cmd.Wait()
		os.RemoveAll(filepath.Dir(n.socketPath))
	}
}

// WriteFile replaces the buffer for path with data and writes it byte for byte. perm is
// kept by Neovim, which rewrites the existing file in place.
func (n *NvimFS) WriteFile(path string, data []byte, _ iofs.FileMode) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	b := n.v.NewBatch()
	b.Command("edit! " + escapeFileName(absPath))
	// Lines keep their own \r and BOM bytes, so Neovim must not add its own.
	b.Command("setlocal fileformat=unix nobomb")
	b.SetBufferLines(0, 0, -1, true, bufferLines(data))
	if !bytes.HasSuffix(data, []byte("\n")) {
		b.Command("setlocal noendofline nofixendofline")
	}
	b.Command("write")
	return b.Execute()
}

func bufferLines(data []byte) [][]byte {
	trimmed := bytes.TrimSuffix(data, []byte("\n"))
	if len(trimmed) == 0 {
		return [][]byte{}
	}
	return bytes.Split(trimmed, []byte("\n"))
}

func escapeFileName(p string) string {
	r := strings.NewReplacer(" ", `\ `, "%", `\%`, "#", `\#`, "|", `\|`)
	return r.Replace(p)
}
