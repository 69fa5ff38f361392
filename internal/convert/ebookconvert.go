package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// EbookConvertEngine shells out to calibre's ebook-convert. Input and
// output go through temp files because the tool only works on paths.
type EbookConvertEngine struct {
	path string
}

// NewEbookConvertEngine builds the engine. An empty path means the
// binary is looked up on PATH.
func NewEbookConvertEngine(path string) *EbookConvertEngine {
	if path == "" {
		path = "ebook-convert"
	}
	return &EbookConvertEngine{path: path}
}

func (e *EbookConvertEngine) Render(ctx context.Context, htmlDoc string, meta Metadata) ([]byte, error) {
	dir, err := os.MkdirTemp("", "news2kindle-*")
	if err != nil {
		return nil, fmt.Errorf("ebook-convert: failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "document.html")
	outPath := filepath.Join(dir, "document."+meta.Format)

	if err := os.WriteFile(inPath, []byte(htmlDoc), 0o600); err != nil {
		return nil, fmt.Errorf("ebook-convert: failed to write input: %w", err)
	}

	args := []string{
		inPath,
		outPath,
		"--input-encoding", "utf-8",
		"--no-default-epub-cover",
		"--title", meta.Title,
		"--authors", meta.Author,
	}
	if meta.Format == "epub" {
		// Older Kindle firmware only accepts EPUB2.
		args = append(args, "--epub-version", "2")
	}

	cmd := exec.CommandContext(ctx, e.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ebook-convert: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ebook-convert: %v (stderr=%s)", err, stderr.String())
	}

	artifact, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("ebook-convert: failed to read output: %w", err)
	}
	return artifact, nil
}
