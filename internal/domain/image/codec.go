package image

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Reduce deduplicates an image list by handle equality. Payloads appear in
// first-seen order and every other Meta field is carried over untouched.
func Reduce(images []Full) *Reduced {
	r := &Reduced{
		Encoding: EncodingHandle,
		Payloads: []Payload{},
		States:   make([]Deref, 0, len(images)),
	}

	seen := make(map[Handle]int, len(images))
	for _, im := range images {
		idx, ok := seen[im.Src]
		if !ok {
			idx = len(r.Payloads)
			seen[im.Src] = idx
			r.Payloads = append(r.Payloads, Payload{Handle: im.Src})
		}
		r.States = append(r.States, Deref{Meta: im.Meta, Src: idx})
	}
	return r
}

// Codec converts payload tables between encodings
type Codec struct {
	resolver Resolver
}

// NewCodec creates a codec backed by the given resolver
func NewCodec(resolver Resolver) *Codec {
	return &Codec{resolver: resolver}
}

// Expand rebuilds a displayable image list. It fails with ErrCorruptedData
// before doing any conversion work if a state points outside the payloads.
func (c *Codec) Expand(ctx context.Context, r *Reduced) ([]Full, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	work := r.Clone()
	if err := c.ToHandles(ctx, work); err != nil {
		return nil, err
	}

	images := make([]Full, len(work.States))
	for i, st := range work.States {
		images[i] = Full{Meta: st.Meta, Src: work.Payloads[st.Src].Handle}
	}
	return images, nil
}

// ToBinary converts the payloads to blobs in place
func (c *Codec) ToBinary(ctx context.Context, r *Reduced) error {
	return c.convert(ctx, r, EncodingBinary, func(ctx context.Context, p Payload, from Encoding) (Payload, error) {
		b, err := c.binary(ctx, p, from)
		return Payload{Blob: b}, err
	})
}

// ToText converts the payloads to base64 data URLs in place
func (c *Codec) ToText(ctx context.Context, r *Reduced) error {
	return c.convert(ctx, r, EncodingText, func(ctx context.Context, p Payload, from Encoding) (Payload, error) {
		b, err := c.binary(ctx, p, from)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Text: b.DataURL()}, nil
	})
}

// ToHandles converts the payloads to runtime handles in place
func (c *Codec) ToHandles(ctx context.Context, r *Reduced) error {
	return c.convert(ctx, r, EncodingHandle, func(ctx context.Context, p Payload, from Encoding) (Payload, error) {
		b, err := c.binary(ctx, p, from)
		if err != nil {
			return Payload{}, err
		}
		h, err := c.resolver.Materialize(ctx, b)
		if err != nil {
			return Payload{}, fmt.Errorf("materialize: %w", err)
		}
		return Payload{Handle: h}, nil
	})
}

// binary is the hub every conversion passes through
func (c *Codec) binary(ctx context.Context, p Payload, from Encoding) (Blob, error) {
	switch from {
	case EncodingBinary:
		return p.Blob, nil
	case EncodingText:
		return ParseDataURL(p.Text)
	case EncodingHandle:
		b, err := c.resolver.Fetch(ctx, p.Handle)
		if err != nil {
			return Blob{}, err
		}
		return b, nil
	default:
		return Blob{}, fmt.Errorf("unknown payload encoding %q", from)
	}
}

type convertFunc func(ctx context.Context, p Payload, from Encoding) (Payload, error)

// convert fans out one goroutine per payload. r is only modified if every
// payload converted.
func (c *Codec) convert(ctx context.Context, r *Reduced, to Encoding, fn convertFunc) error {
	if r.Encoding == to {
		return nil
	}

	from := r.Encoding
	out := make([]Payload, len(r.Payloads))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range r.Payloads {
		g.Go(func() error {
			converted, err := fn(gctx, p, from)
			if err != nil {
				return fmt.Errorf("payload %d (%s -> %s): %w", i, from, to, err)
			}
			out[i] = converted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.Payloads = out
	r.Encoding = to
	return nil
}
