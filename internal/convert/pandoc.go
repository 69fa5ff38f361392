package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PandocEngine renders through pandoc. A leaner alternative when calibre
// is not installed.
type PandocEngine struct {
	path string
}

func NewPandocEngine(path string) *PandocEngine {
	if path == "" {
		path = "pandoc"
	}
	return &PandocEngine{path: path}
}

func (e *PandocEngine) Render(ctx context.Context, htmlDoc string, meta Metadata) ([]byte, error) {
	dir, err := os.MkdirTemp("", "news2kindle-*")
	if err != nil {
		return nil, fmt.Errorf("pandoc: failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	outPath := filepath.Join(dir, "document."+meta.Format)

	args := []string{
		"--from", "html",
		"--to", meta.Format,
		"--output", outPath,
		"--standalone",
		"--toc",
		"--metadata", "title:" + meta.Title,
		"--metadata", "author:" + meta.Author,
	}

	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stdin = strings.NewReader(htmlDoc)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pandoc: %w", ctx.Err())
		}
		return nil, fmt.Errorf("pandoc: %v (stderr=%s)", err, stderr.String())
	}

	artifact, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("pandoc: failed to read output: %w", err)
	}
	return artifact, nil
}
