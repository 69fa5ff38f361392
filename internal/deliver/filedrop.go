package deliver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDropTransport writes the artifact into a directory, for device
// sync folders or manual USB transfer.
type FileDropTransport struct {
	dir string
}

func NewFileDropTransport(dir string) *FileDropTransport {
	return &FileDropTransport{dir: dir}
}

func (t *FileDropTransport) Send(_ context.Context, artifact Artifact) error {
	if len(artifact.Data) == 0 {
		return fmt.Errorf("filedrop: refusing to write empty artifact")
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("filedrop: failed to create %s: %w", t.dir, err)
	}

	path := filepath.Join(t.dir, artifact.Filename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("filedrop: failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("filedrop: failed to move artifact into place: %w", err)
	}

	return nil
}
