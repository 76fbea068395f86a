package session

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
	"github.com/GriffinCanCode/imageviewer/internal/domain/viewer"
	"github.com/GriffinCanCode/imageviewer/internal/shared/id"
)

var (
	// ErrOutOfRange is returned for a session index outside the collection
	ErrOutOfRange = errors.New("session index out of range")
	// ErrMissingID is returned when a remote operation needs a session id
	ErrMissingID = errors.New("session has no id")
)

// Session is one named viewer state
type Session struct {
	ID   string
	Name string
	viewer.State
	// Flattened is nil when no rendering exists
	Flattened []image.Full
}

// New creates a hidden session named after t
func New(images []image.Full, t time.Time) Session {
	return Session{
		Name:  id.SessionName(t),
		State: viewer.New(images),
	}
}

// Apply runs a viewer command. Commands that touch the image list drop
// the flattened rendering.
func (s Session) Apply(cmd viewer.Command) (Session, error) {
	st, err := viewer.Apply(s.State, cmd)
	if err != nil {
		return s, err
	}

	out := s.Clone()
	out.State = st
	switch cmd.(type) {
	case viewer.SetVisible, viewer.SetFocus:
	default:
		out.Flattened = nil
	}
	return out, nil
}

// SetImages replaces the image list
func (s Session) SetImages(images []image.Full) Session {
	out, _ := s.Apply(viewer.ReplaceAll{Images: images})
	return out
}

// Rename returns a copy with a new name
func (s Session) Rename(name string) Session {
	out := s.Clone()
	out.Name = name
	return out
}

// HasID reports whether the sync service knows this session
func (s Session) HasID() bool {
	return s.ID != ""
}

// Clone deep-copies the image lists
func (s Session) Clone() Session {
	out := s
	out.State = s.State.Clone()
	if s.Flattened != nil {
		out.Flattened = image.CloneImages(s.Flattened)
	}
	return out
}

func cloneAll(sessions []Session) []Session {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}
