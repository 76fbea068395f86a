package viewer

import (
	"fmt"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
)

// Command is a transition of the viewer state machine
type Command interface {
	// Name identifies the command in logs and CLI output
	Name() string
	apply(s State) (State, error)
}

// Apply runs cmd against s. On error the returned state is s unchanged.
func Apply(s State, cmd Command) (State, error) {
	if cmd == nil {
		return s, fmt.Errorf("apply: nil command")
	}
	next, err := cmd.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

// ApplyAll runs cmds in order and stops at the first invalid one
func ApplyAll(s State, cmds ...Command) (State, error) {
	for _, cmd := range cmds {
		next, err := Apply(s, cmd)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

// SetVisible shows or hides the viewer
type SetVisible struct {
	Visible bool
}

func (SetVisible) Name() string { return "setVisible" }

func (c SetVisible) apply(s State) (State, error) {
	if c.Visible && len(s.Images) == 0 {
		return s, fmt.Errorf("%s: %w to show", c.Name(), ErrNoImages)
	}
	s.Visible = c.Visible
	return s, nil
}

// SetFocus moves focus to Index
type SetFocus struct {
	Index int
}

func (SetFocus) Name() string { return "setFocus" }

func (c SetFocus) apply(s State) (State, error) {
	if err := checkIndex(c.Name(), c.Index, len(s.Images)); err != nil {
		return s, err
	}
	s.Focus = c.Index
	return s, nil
}

// DuplicateFocused inserts a copy of the focused image right after it and
// focuses the copy
type DuplicateFocused struct{}

func (DuplicateFocused) Name() string { return "duplicateFocused" }

func (c DuplicateFocused) apply(s State) (State, error) {
	n := len(s.Images)
	if n == 0 {
		return s, fmt.Errorf("%s: %w", c.Name(), ErrNoImages)
	}
	if err := checkIndex(c.Name(), s.Focus, n); err != nil {
		return s, err
	}

	at := s.Focus + 1
	images := make([]image.Full, 0, n+1)
	images = append(images, s.Images[:at]...)
	images = append(images, s.Images[s.Focus])
	images = append(images, s.Images[at:]...)

	s.Images = Renumber(images)
	s.Focus = at
	return s, nil
}

// DeleteAt removes the image at Index. Focus keeps pointing at the same
// image when an earlier one is removed; removing the focused image focuses
// its successor, or its predecessor when it was last.
type DeleteAt struct {
	Index int
}

func (DeleteAt) Name() string { return "deleteAt" }

func (c DeleteAt) apply(s State) (State, error) {
	n := len(s.Images)
	if err := checkIndex(c.Name(), c.Index, n); err != nil {
		return s, err
	}

	images := make([]image.Full, 0, n-1)
	images = append(images, s.Images[:c.Index]...)
	images = append(images, s.Images[c.Index+1:]...)

	focus := s.Focus
	if c.Index < focus {
		focus--
	}

	s.Images = Renumber(images)
	s.Focus = clampFocus(focus, len(images))
	if len(images) == 0 {
		s.Visible = false
	}
	return s, nil
}

// MoveTo swaps the focused image with the one at Target and follows it
type MoveTo struct {
	Target int
}

func (MoveTo) Name() string { return "moveTo" }

func (c MoveTo) apply(s State) (State, error) {
	n := len(s.Images)
	if err := checkIndex(c.Name(), c.Target, n); err != nil {
		return s, err
	}
	if err := checkIndex(c.Name(), s.Focus, n); err != nil {
		return s, err
	}

	images := image.CloneImages(s.Images)
	images[s.Focus], images[c.Target] = images[c.Target], images[s.Focus]
	images[s.Focus].Alt = s.Focus
	images[c.Target].Alt = c.Target

	s.Images = images
	s.Focus = c.Target
	return s, nil
}

// ReplaceAll swaps in a new image list. Focus is clamped into the new bounds
// and the viewer is shown whenever there is something to show.
type ReplaceAll struct {
	Images []image.Full
}

func (ReplaceAll) Name() string { return "replaceAll" }

func (c ReplaceAll) apply(s State) (State, error) {
	s.Images = Renumber(c.Images)
	s.Focus = clampFocus(s.Focus, len(s.Images))
	s.Visible = len(s.Images) != 0
	return s, nil
}

// Append adds freshly loaded images to the end of the list. A zero Scale
// defaults to 1.
type Append struct {
	Images []image.Full
}

func (Append) Name() string { return "append" }

func (c Append) apply(s State) (State, error) {
	images := make([]image.Full, 0, len(s.Images)+len(c.Images))
	images = append(images, s.Images...)
	for _, im := range c.Images {
		if im.Scale == 0 {
			im.Scale = 1
		}
		images = append(images, im)
	}

	s.Images = Renumber(images)
	s.Focus = clampFocus(s.Focus, len(s.Images))
	s.Visible = len(s.Images) != 0
	return s, nil
}
