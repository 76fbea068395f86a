package image

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/imageviewer/internal/shared/id"
)

var (
	// ErrCorruptedData marks reduced data whose states point outside the payload table
	ErrCorruptedData = errors.New("corrupted image data")
	// ErrIndexOutOfRange is wrapped by ErrCorruptedData with the offending index
	ErrIndexOutOfRange = errors.New("payload index out of range")
	// ErrNotPersistable is returned when runtime handles would be serialized
	ErrNotPersistable = errors.New("runtime handles cannot be persisted")
	// ErrUnknownHandle is returned when a handle cannot be resolved
	ErrUnknownHandle = errors.New("unknown image handle")
	// ErrInvalidDataURL is returned for malformed text payloads
	ErrInvalidDataURL = errors.New("invalid data URL")
)

// Meta is the per-image viewer state.
// Alt mirrors the image's position in its list and is recomputed on every mutation.
type Meta struct {
	Alt    int     `json:"alt"`
	Scale  float64 `json:"scale"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Rotate float64 `json:"rotate"`
}

// Handle references image bytes. Runtime handles ("blob:") are only valid
// inside the registry that minted them; served URLs and data URLs are portable.
type Handle string

// IsRuntime reports whether h is a process-scoped runtime handle
func (h Handle) IsRuntime() bool {
	return strings.HasPrefix(string(h), id.HandleScheme)
}

// IsRemote reports whether h is a served http(s) URL
func (h Handle) IsRemote() bool {
	s := string(h)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsInline reports whether h is a data URL
func (h Handle) IsInline() bool {
	return strings.HasPrefix(string(h), "data:")
}

func (h Handle) String() string { return string(h) }

// Full is an image as the viewer holds it
type Full struct {
	Meta
	Src Handle `json:"src"`
}

// Deref is an image whose source is an index into a payload table
type Deref struct {
	Meta
	Src int `json:"src"`
}

// Encoding tags the form payloads are currently held in
type Encoding string

const (
	EncodingHandle Encoding = "handle"
	EncodingBinary Encoding = "binary"
	EncodingText   Encoding = "text"
)

// Payload holds one deduplicated image in the form named by the owning
// Reduced's Encoding. Only the matching field is meaningful.
type Payload struct {
	Handle Handle
	Blob   Blob
	Text   string
}

// Reduced is the deduplicated, index-based form of an image list
type Reduced struct {
	Encoding Encoding
	Payloads []Payload
	States   []Deref
}

// Clone returns a copy that shares no slices with r
func (r *Reduced) Clone() *Reduced {
	out := &Reduced{
		Encoding: r.Encoding,
		Payloads: make([]Payload, len(r.Payloads)),
		States:   make([]Deref, len(r.States)),
	}
	copy(out.Payloads, r.Payloads)
	copy(out.States, r.States)
	return out
}

// Validate checks that every state references an existing payload
func (r *Reduced) Validate() error {
	for i, st := range r.States {
		if st.Src < 0 || st.Src >= len(r.Payloads) {
			return &CorruptionError{State: i, Index: st.Src, Payloads: len(r.Payloads)}
		}
	}
	return nil
}

// CorruptionError describes a state that points outside its payload table
type CorruptionError struct {
	State    int
	Index    int
	Payloads int
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: state %d references payload %d of %d",
		ErrCorruptedData, e.State, e.Index, e.Payloads)
}

// Is makes errors.Is match both ErrCorruptedData and ErrIndexOutOfRange
func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorruptedData || target == ErrIndexOutOfRange
}

// CloneImages copies an image list
func CloneImages(images []Full) []Full {
	if images == nil {
		return nil
	}
	out := make([]Full, len(images))
	copy(out, images)
	return out
}
