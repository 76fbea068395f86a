package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// pngBlob returns a small PNG-looking blob whose bytes depend on tag
func pngBlob(tag byte) image.Blob {
	data := append([]byte{}, pngHeader...)
	data = append(data, 0, 0, 0, 13, 'I', 'H', 'D', 'R', tag, tag, tag)
	return image.Blob{MIME: "image/png", Data: data}
}

func materialize(t *testing.T, reg *image.Registry, b image.Blob) image.Handle {
	t.Helper()
	h, err := reg.Materialize(context.Background(), b)
	require.NoError(t, err)
	return h
}

func fulls(handles ...image.Handle) []image.Full {
	out := make([]image.Full, len(handles))
	for i, h := range handles {
		out[i] = image.Full{Meta: image.Meta{Alt: i, Scale: 1}, Src: h}
	}
	return out
}

// bytesOf resolves every image of a list to its payload bytes
func bytesOf(t *testing.T, reg *image.Registry, images []image.Full) [][]byte {
	t.Helper()
	out := make([][]byte, len(images))
	for i, im := range images {
		b, err := reg.Fetch(context.Background(), im.Src)
		require.NoError(t, err)
		out[i] = b.Data
	}
	return out
}

// fakeRunner renders every state to the bytes of its payload
type fakeRunner struct {
	flattenCalls int
	zoom         float64
	encoding     image.Encoding
	err          error
}

func (f *fakeRunner) Flatten(_ context.Context, r *image.Reduced, zoom float64) ([][]byte, error) {
	f.flattenCalls++
	f.zoom = zoom
	f.encoding = r.Encoding
	if f.err != nil {
		return nil, f.err
	}

	out := make([][]byte, len(r.States))
	for i, st := range r.States {
		b, err := image.ParseDataURL(r.Payloads[st.Src].Text)
		if err != nil {
			return nil, err
		}
		out[i] = b.Data
	}
	return out, nil
}

func (f *fakeRunner) Compile(_ context.Context, r *image.Reduced, zoom float64) ([]byte, error) {
	f.zoom = zoom
	f.encoding = r.Encoding
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK\x05\x06archive"), nil
}
