package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/diagnostics"
)

// runPull downloads every configured model that is not cached yet.
func runPull(ctx context.Context, cfg *config.Config) error {
	pool := newModelPool(cfg)
	for _, id := range configuredModels(cfg) {
		path, err := pool.Resolve(ctx, id)
		if err != nil {
			return fmt.Errorf("pulling %s: %w", id, err)
		}
		slog.Info("model ready", "model", id, "path", path)
	}
	return nil
}

// runDoctor prints a diagnostics report and fails if any check failed.
func runDoctor(cfg *config.Config, stdout io.Writer) error {
	report := diagnostics.NewChecker().Run(diagnosticSettings(cfg, newModelPool(cfg)))
	for _, item := range report.Items {
		fmt.Fprintf(stdout, "[%s] %-22s %s\n", item.Status, item.Name, item.Message)
		if item.Hint != "" && item.Status != diagnostics.StatusPass {
			fmt.Fprintf(stdout, "       %-22s %s\n", "", item.Hint)
		}
	}
	return report.Err()
}

// runConfig prints the effective configuration with secrets masked.
func runConfig(cfg *config.Config, stdout io.Writer) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg.Redacted())
}
