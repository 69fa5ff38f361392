package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"news2kindle/internal/assemble"
)

// Metadata carries the document-level fields the engine stamps onto the
// artifact.
type Metadata struct {
	Title  string
	Author string
	Format string
}

// Engine renders an HTML document to an ebook artifact. Any concrete
// engine honoring this capability is substitutable.
type Engine interface {
	Render(ctx context.Context, htmlDoc string, meta Metadata) ([]byte, error)
}

// Result is the outcome of one conversion. A failed conversion carries
// Err and no artifact; it is never retried here.
type Result struct {
	Artifact []byte
	Format   string
	OK       bool
	Err      error
}

// Adapter maps the document model into the engine's input shape and
// interprets the engine's outcome. The byte-level transformation itself
// stays external.
type Adapter struct {
	engine  Engine
	format  string
	timeout time.Duration
}

func NewAdapter(engine Engine, format string, timeout time.Duration) *Adapter {
	return &Adapter{
		engine:  engine,
		format:  format,
		timeout: timeout,
	}
}

// Convert renders the document once. Engine failure, timeout, and an
// empty artifact all yield OK=false with error detail.
func (a *Adapter) Convert(ctx context.Context, doc *assemble.Document) Result {
	res := Result{Format: a.format}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	htmlDoc := RenderHTML(doc)
	meta := Metadata{
		Title:  doc.Title,
		Author: doc.Author,
		Format: a.format,
	}

	artifact, err := a.engine.Render(ctx, htmlDoc, meta)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("convert: engine timed out after %s: %w", a.timeout, err)
		}
		res.Err = err
		return res
	}
	if len(artifact) == 0 {
		res.Err = fmt.Errorf("convert: engine produced an empty artifact")
		return res
	}

	res.Artifact = artifact
	res.OK = true
	return res
}
