// Package filesystem reads the username list and writes generated configs.
package filesystem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zinrai/grouppolicy-gen/internal/domain"
)

// ReadNames returns the whitespace-separated tokens of the file at path.
func ReadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.InvalidInputError{Field: "users file", Value: path, Err: errors.New("file not found")}
		}
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	return ScanNames(f)
}

func ScanNames(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	return names, nil
}

// Writer writes configs into an existing directory. It never creates the
// directory.
type Writer struct {
	perm fs.FileMode
}

var _ domain.ConfigWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{perm: 0644}
}

func (w *Writer) WriteConfig(dir, name, contents string) (string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return "", &domain.DestinationNotFoundError{Path: dir}
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat destination: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), w.perm); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
