package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gitlab.com/yelinaung/rentbook/internal/logger"
)

// AutoBackup writes a fresh snapshot to one fixed path after specific
// mutations, overwriting the previous file. Backups are never versioned or
// rotated, and a failed write must never interrupt the mutation that
// triggered it: it is logged and dropped.
type AutoBackup struct {
	exporter *Exporter
	path     string
}

// NewAutoBackup creates an AutoBackup writing to the given path.
func NewAutoBackup(exporter *Exporter, path string) *AutoBackup {
	return &AutoBackup{exporter: exporter, path: path}
}

// Path returns the fixed backup location.
func (a *AutoBackup) Path() string {
	return a.path
}

// BillSaved is the hook fired after a bill save. It exports the store and
// overwrites the backup file; errors are logged only.
func (a *AutoBackup) BillSaved(ctx context.Context) {
	if err := a.run(ctx); err != nil {
		logger.Log.Error().Err(err).Str("path", a.path).Msg("Auto backup failed")
		return
	}
	logger.Log.Debug().Str("path", a.path).Msg("Auto backup written")
}

func (a *AutoBackup) run(ctx context.Context) error {
	data, err := a.exporter.Export(ctx)
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-write cannot leave a truncated
	// backup behind.
	tmp := a.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return fmt.Errorf("failed to replace backup: %w", err)
	}
	return nil
}
