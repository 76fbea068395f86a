package flatten

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/logging"
)

var (
	// ErrCommand is returned when the compositor exits unsuccessfully
	ErrCommand = errors.New("flatten command failed")
	// ErrBadOutput is returned when the compositor output cannot be used
	ErrBadOutput = errors.New("flatten command returned unusable output")
	// ErrNotConfigured is returned when no compositor command is set
	ErrNotConfigured = errors.New("flatten command not configured")
)

// Runner renders reduced image lists
type Runner interface {
	// Flatten returns one PNG per state, in state order
	Flatten(ctx context.Context, r *image.Reduced, zoom float64) ([][]byte, error)
	// Compile returns a zip archive holding one rendered image per state
	Compile(ctx context.Context, r *image.Reduced, zoom float64) ([]byte, error)
}

// Command runs the compositor as a child process
type Command struct {
	Path   string
	Args   []string // prepended before the subcommand
	Env    []string // appended to the current environment
	Logger *logging.Logger
}

// NewCommand creates a runner for the executable at path
func NewCommand(path string, args ...string) *Command {
	return &Command{Path: path, Args: args, Logger: logging.NewNop()}
}

// Flatten renders every state to a standalone PNG
func (c *Command) Flatten(ctx context.Context, r *image.Reduced, zoom float64) ([][]byte, error) {
	out, err := c.run(ctx, "flatten", r, zoom)
	if err != nil {
		return nil, err
	}

	var images [][]byte
	if err := sonic.ConfigStd.Unmarshal(out, &images); err != nil {
		return nil, fmt.Errorf("%w: decode flatten output: %v", ErrBadOutput, err)
	}
	if len(images) != len(r.States) {
		return nil, fmt.Errorf("%w: %d images for %d states", ErrBadOutput, len(images), len(r.States))
	}
	for i, data := range images {
		if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
			return nil, fmt.Errorf("%w: image %d is %s", ErrBadOutput, i, mt)
		}
	}
	return images, nil
}

// Compile renders every state into one zip archive
func (c *Command) Compile(ctx context.Context, r *image.Reduced, zoom float64) ([]byte, error) {
	out, err := c.run(ctx, "compile", r, zoom)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	if len(zr.File) != len(r.States) {
		return nil, fmt.Errorf("%w: archive holds %d files for %d states", ErrBadOutput, len(zr.File), len(r.States))
	}
	return out, nil
}

func (c *Command) run(ctx context.Context, sub string, r *image.Reduced, zoom float64) ([]byte, error) {
	if c.Path == "" {
		return nil, ErrNotConfigured
	}
	if r.Encoding != image.EncodingText {
		return nil, fmt.Errorf("%s: payloads must be text encoded, got %s", sub, r.Encoding)
	}
	if zoom <= 0 {
		zoom = 1
	}

	input, err := sonic.ConfigStd.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%s: encode input: %w", sub, err)
	}

	args := append(append([]string{}, c.Args...), sub, "--zoom", strconv.FormatFloat(zoom, 'f', -1, 64))
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Stdin = bytes.NewReader(input)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := c.Logger
	if log == nil {
		log = logging.NewNop()
	}
	log.Debug("running compositor",
		zap.String("cmd", c.Path),
		zap.String("sub", sub),
		zap.Int("states", len(r.States)),
		zap.Int("payloads", len(r.Payloads)))

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCommand, sub, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrCommand, sub, err, msg)
	}
	return stdout.Bytes(), nil
}
