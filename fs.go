package unconsole

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
)

// FileInfo holds the file metadata the sanitizer needs.
type FileInfo struct {
	Name  string
	IsDir bool
	Mode  iofs.FileMode
}

// DirEntry is a single directory listing entry.
type DirEntry struct {
	Name    string
	IsDir   bool
	Regular bool
}

// FileSystem is the I/O capability the sanitizer works through, so writes can be
// routed to the local disk or an editor.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm iofs.FileMode) error
	ReadDir(path string) ([]DirEntry, error)
	Stat(path string) (FileInfo, error)
}

// LocalFS implements FileSystem on the local disk.
type LocalFS struct{}

func NewLocalFS() *LocalFS {
	return &LocalFS{}
}

func (LocalFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (LocalFS) WriteFile(path string, data []byte, perm iofs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (LocalFS) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, len(entries))
	for i, e := range entries {
		result[i] = DirEntry{
			Name:    e.Name(),
			IsDir:   e.IsDir(),
			Regular: e.Type().IsRegular(),
		}
	}
	return result, nil
}

func (LocalFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: info.Name(), IsDir: info.IsDir(), Mode: info.Mode().Perm()}, nil
}

func ContentSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func WriteBlob(dir string, hash string, content []byte) error {
	blobDir := filepath.Join(dir, BlobsDir)
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(blobDir, hash)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(content); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return os.WriteFile(path, b.Bytes(), 0644)
}

func ReadBlob(dir string, hash string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, BlobsDir, hash))
	if err != nil {
		return nil, err
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
