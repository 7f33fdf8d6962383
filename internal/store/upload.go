package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmorgan81/qrgen/internal/log"
)

// DefaultName is the file name every download is emitted under.
const DefaultName = "qrcode.png"

type SaveParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Saver persists image bytes and returns where they ended up.
type Saver interface {
	Save(context.Context, SaveParams) (string, error)
}

type FileSaver struct {
	Dir string
}

func (s *FileSaver) Save(ctx context.Context, params SaveParams) (string, error) {
	path := filepath.Join(s.Dir, filepath.Base(params.Name))
	log := log.FromContextOrDiscard(ctx).WithGroup("file")
	log.Info("writing", "file", path, "bytes", len(params.Data))

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	if err := os.WriteFile(path, params.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
