package session

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
	"github.com/GriffinCanCode/imageviewer/internal/domain/viewer"
)

// record is the stored and exported form of a session
type record struct {
	Name        string         `json:"name"`
	ActiveIndex int            `json:"activeIndex"`
	Show        bool           `json:"show"`
	ID          string         `json:"id,omitempty"`
	Images      *image.Reduced `json:"imgs_r"`
	Flattened   *image.Reduced `json:"flattened_r"`
}

// remoteRecord is the form the sync service stores. Image sources are
// served URLs, so no payload table is needed.
type remoteRecord struct {
	Name        string       `json:"name"`
	ActiveIndex int          `json:"activeIndex"`
	Show        bool         `json:"show"`
	ID          string       `json:"id,omitempty"`
	Images      []image.Full `json:"imgs"`
	Flattened   []image.Full `json:"flattened"`
}

// convertFunc is one of the codec's in-place conversions
type convertFunc func(ctx context.Context, r *image.Reduced) error

// toRecord reduces both image lists of s and converts them with to
func toRecord(ctx context.Context, s Session, to convertFunc) (record, error) {
	rec := record{
		Name:        s.Name,
		ActiveIndex: s.Focus,
		Show:        s.Visible,
		ID:          s.ID,
		Images:      image.Reduce(s.Images),
	}
	if err := to(ctx, rec.Images); err != nil {
		return record{}, fmt.Errorf("images: %w", err)
	}

	if s.Flattened != nil {
		rec.Flattened = image.Reduce(s.Flattened)
		if err := to(ctx, rec.Flattened); err != nil {
			return record{}, fmt.Errorf("flattened: %w", err)
		}
	}
	return rec, nil
}

// fromRecord expands a record into runtime handles
func fromRecord(ctx context.Context, codec *image.Codec, rec record) (Session, error) {
	s := Session{ID: rec.ID, Name: rec.Name}

	var images []image.Full
	if rec.Images != nil {
		expanded, err := codec.Expand(ctx, rec.Images)
		if err != nil {
			return Session{}, fmt.Errorf("images: %w", err)
		}
		images = expanded
	}
	s.State = viewer.Normalize(viewer.State{
		Images:  images,
		Focus:   rec.ActiveIndex,
		Visible: rec.Show,
	})

	if rec.Flattened != nil {
		flattened, err := codec.Expand(ctx, rec.Flattened)
		if err != nil {
			return Session{}, fmt.Errorf("flattened: %w", err)
		}
		s.Flattened = flattened
	}
	return s, nil
}

func toRemote(s Session) remoteRecord {
	images := image.CloneImages(s.Images)
	if images == nil {
		images = []image.Full{}
	}
	return remoteRecord{
		Name:        s.Name,
		ActiveIndex: s.Focus,
		Show:        s.Visible,
		ID:          s.ID,
		Images:      images,
		Flattened:   image.CloneImages(s.Flattened),
	}
}

func fromRemote(rec remoteRecord) Session {
	return Session{
		ID:   rec.ID,
		Name: rec.Name,
		State: viewer.Normalize(viewer.State{
			Images:  rec.Images,
			Focus:   rec.ActiveIndex,
			Visible: rec.Show,
		}),
		Flattened: rec.Flattened,
	}
}
