// Package viewer holds the pure state machine behind an image viewer session.
//
// A State is an ordered image list with a focused index and a visibility flag.
// Commands are applied with Apply, which never mutates its input and never
// panics. Invalid commands return the input state together with an error
// wrapping ErrOutOfRange or ErrNoImages, which callers surface as warnings.
//
// Invariants kept by every transition:
//   - Images[i].Alt == i
//   - 0 <= Focus < len(Images) when the list is non-empty
//   - Focus == 0 and Visible == false when the list is empty
//
// Example Usage:
//
//	s := viewer.New(images)
//	s, err := viewer.Apply(s, viewer.DuplicateFocused{})
//	s, err = viewer.Apply(s, viewer.MoveTo{Target: 0})
package viewer
