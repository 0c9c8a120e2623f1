package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Lllllllleong/geminiocr/internal/models"
	"github.com/moby/sys/atomicwriter"
)

// ArtifactWriter persists the rendered document. Writes are all-or-nothing.
type ArtifactWriter interface {
	Write(ctx context.Context, dest string, content []byte) error
}

// LocalWriter writes to the local filesystem through a temp file and rename,
// so a failed write never leaves a truncated output behind.
type LocalWriter struct {
	NoClobber bool
}

func (w LocalWriter) Write(_ context.Context, dest string, content []byte) error {
	if w.NoClobber {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%w: %s already exists", models.ErrPersistence, dest)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", models.ErrPersistence, err)
		}
	}
	if err := atomicwriter.WriteFile(dest, content, 0o644); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return nil
}

// RoutingWriter sends gs:// destinations to Remote and everything else to Local.
type RoutingWriter struct {
	Local  ArtifactWriter
	Remote ArtifactWriter
	// IsRemote decides which writer handles dest.
	IsRemote func(dest string) bool
}

func (w RoutingWriter) Write(ctx context.Context, dest string, content []byte) error {
	if w.IsRemote != nil && w.IsRemote(dest) {
		if w.Remote == nil {
			return fmt.Errorf("%w: no remote writer configured for %s", models.ErrPersistence, dest)
		}
		return w.Remote.Write(ctx, dest, content)
	}
	return w.Local.Write(ctx, dest, content)
}
