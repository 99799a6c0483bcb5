package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirWriter saves each snapshot as FileName(s) inside Dir, replacing the
// previous workbook of the same period.
type DirWriter struct {
	Dir string
}

// Publish writes the workbook to a temporary file and renames it into place
// so readers never see a partial document.
func (d DirWriter) Publish(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	final := filepath.Join(d.Dir, FileName(s))
	tmp := final + ".tmp"
	if err := SaveWorkbook(tmp, s); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}
