package collab

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/audio"
)

// LocalCallSimulator models a perfect-fidelity recording system: the
// far-side recording is a byte-for-byte copy of the input audio under a
// new name. Duration and format carry over unchanged.
type LocalCallSimulator struct {
	dir    string
	logger log.Logger
}

func NewLocalCallSimulator(logger log.Logger, dir string) (*LocalCallSimulator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create recording directory")
	}
	return &LocalCallSimulator{dir: dir, logger: logger}, nil
}

func (c *LocalCallSimulator) Simulate(ctx context.Context, in *audio.Artifact) (*audio.Artifact, error) {
	if _, err := os.Stat(in.Path); err != nil {
		return nil, errors.Wrapf(err, "input audio %s does not exist", in.Path)
	}

	ext := filepath.Ext(in.Path)
	name := fmt.Sprintf("recorded_%s%s", uuid.NewString()[:8], ext)
	dst := filepath.Join(c.dir, name)

	if err := copyFile(in.Path, dst); err != nil {
		return nil, errors.Wrap(err, "failed to record call audio")
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}

	out := &audio.Artifact{
		Path:     dst,
		Duration: in.Duration,
		Size:     info.Size(),
		Format:   strings.TrimPrefix(ext, "."),
	}
	c.logger.Debug("simulated call recording", "file", name, "duration", out.Duration)
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
