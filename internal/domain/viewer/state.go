package viewer

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
)

var (
	// ErrOutOfRange is returned when an index argument is outside the image list
	ErrOutOfRange = errors.New("index out of range")
	// ErrNoImages is returned by commands that need at least one image
	ErrNoImages = errors.New("no images")
)

// State is an immutable snapshot of a viewer session
type State struct {
	Images  []image.Full
	Focus   int
	Visible bool
}

// New builds a hidden state over images with alts renumbered and focus at 0
func New(images []image.Full) State {
	return State{Images: Renumber(images)}
}

// Len returns the number of images
func (s State) Len() int { return len(s.Images) }

// Focused returns the focused image, if any
func (s State) Focused() (image.Full, bool) {
	if s.Focus < 0 || s.Focus >= len(s.Images) {
		return image.Full{}, false
	}
	return s.Images[s.Focus], true
}

// Clone returns a copy that shares no slice with s
func (s State) Clone() State {
	s.Images = image.CloneImages(s.Images)
	return s
}

// Normalize repairs a state read from outside the reducer: alts are
// renumbered, focus is clamped and an empty list is hidden.
func Normalize(s State) State {
	s.Images = Renumber(s.Images)
	s.Focus = clampFocus(s.Focus, len(s.Images))
	if len(s.Images) == 0 {
		s.Visible = false
	}
	return s
}

// Renumber returns a copy of images with every Alt set to its position
func Renumber(images []image.Full) []image.Full {
	out := make([]image.Full, len(images))
	for i, im := range images {
		im.Alt = i
		out[i] = im
	}
	return out
}

func clampFocus(focus, n int) int {
	switch {
	case n == 0 || focus < 0:
		return 0
	case focus >= n:
		return n - 1
	default:
		return focus
	}
}

func checkIndex(op string, i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%s: %w: %d not in [0, %d)", op, ErrOutOfRange, i, n)
	}
	return nil
}
