// Package publisher loads configuration and writes the artifacts and report of
// a finished run.
package publisher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"auto_manim_codegen/retry"
)

// ErrNotPublishable is returned when artifacts are requested for a run that
// did not succeed.
var ErrNotPublishable = errors.New("publisher: only successful runs produce artifacts")

// ErrUnsafePath is returned when a unit id would place its file outside the
// output directory.
var ErrUnsafePath = errors.New("publisher: artifact path escapes output dir")

// Publisher writes validated scene files to the output directory.
type Publisher struct {
	outputDir string
	ext       string
	logger    *zap.Logger
}

func New(outputDir, ext string, logger *zap.Logger) (*Publisher, error) {
	if outputDir == "" {
		return nil, errors.New("output dir is required")
	}
	if ext == "" {
		ext = ".py"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{outputDir: outputDir, ext: ext, logger: logger}, nil
}

// WriteArtifacts writes <unit_id><ext> for each validated unit and returns the
// paths in unit order. The directory is created if missing.
func (p *Publisher) WriteArtifacts(out *retry.Outcome) ([]string, error) {
	if out == nil || out.Status != retry.StateSuccess {
		return nil, ErrNotPublishable
	}
	ids := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Success {
			ids = append(ids, r.UnitID)
		}
	}
	sort.Strings(ids)

	// 先校验全部路径，避免写出一半后失败。
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := out.Rendered[id]; !ok {
			return nil, fmt.Errorf("publisher: no rendered source for unit %s", id)
		}
		path, err := p.artifactPath(id)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	for i, id := range ids {
		if err := os.WriteFile(paths[i], []byte(out.Rendered[id]), 0o644); err != nil {
			return paths[:i], fmt.Errorf("write %s: %w", paths[i], err)
		}
		p.logger.Info("wrote scene", zap.String("unit", id), zap.String("path", paths[i]))
	}
	return paths, nil
}

// artifactPath joins id onto the output dir and rejects anything that does not
// land directly inside it.
func (p *Publisher) artifactPath(id string) (string, error) {
	path := filepath.Join(p.outputDir, id+p.ext)
	if id == "" || filepath.Dir(path) != filepath.Clean(p.outputDir) {
		return "", fmt.Errorf("%w: unit %q", ErrUnsafePath, id)
	}
	return path, nil
}
