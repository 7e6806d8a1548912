package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/abgdnv/productcatalog/pkg/config"
)

// RunFileProbes marks the process ready by creating the readiness file and
// then refreshes the liveness file every cfg.LivenessInterval until ctx is
// done. Both files are removed on return.
func RunFileProbes(ctx context.Context, cfg config.ProbesConfig, logger *slog.Logger) error {
	defer func() {
		for _, name := range []string{cfg.ReadinessFileName, cfg.LivenessFileName} {
			if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Failed to remove probe file", "file", name, "error", err)
			}
		}
	}()

	if err := touch(cfg.LivenessFileName); err != nil {
		return fmt.Errorf("failed to write liveness file: %w", err)
	}
	if err := touch(cfg.ReadinessFileName); err != nil {
		return fmt.Errorf("failed to write readiness file: %w", err)
	}
	logger.Info("Probe files created", "readiness", cfg.ReadinessFileName, "liveness", cfg.LivenessFileName)

	ticker := time.NewTicker(cfg.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := touch(cfg.LivenessFileName); err != nil {
				logger.Warn("Failed to refresh liveness file", "error", err)
			}
		}
	}
}

// touch creates name or updates its modification time.
func touch(name string) error {
	now := time.Now()
	if err := os.Chtimes(name, now, now); err == nil {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	return f.Close()
}
