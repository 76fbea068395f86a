package image

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTextUsesDataURLStrings(t *testing.T) {
	r := Reduced{
		Encoding: EncodingText,
		Payloads: []Payload{{Text: "data:image/png;base64,AAAA"}},
		States:   []Deref{{Meta: Meta{Alt: 0, Scale: 1}, Src: 0}},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"dataURLs": ["data:image/png;base64,AAAA"],
		"imgStates": [{"alt":0,"scale":1,"left":0,"top":0,"rotate":0,"src":0}]
	}`, string(data))
}

func TestMarshalRefusesRuntimeHandles(t *testing.T) {
	r := Reduce([]Full{{Src: "blob:01HZX"}})

	_, err := json.Marshal(r)
	assert.ErrorIs(t, err, ErrNotPersistable)
}

func TestJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Reduced
	}{
		{
			name: "text",
			in: Reduced{
				Encoding: EncodingText,
				Payloads: []Payload{{Text: pngBlob(1).DataURL()}, {Text: pngBlob(2).DataURL()}},
				States:   []Deref{{Src: 1}, {Meta: Meta{Alt: 1, Rotate: 270}, Src: 0}},
			},
		},
		{
			name: "binary",
			in: Reduced{
				Encoding: EncodingBinary,
				Payloads: []Payload{{Blob: pngBlob(3)}},
				States:   []Deref{{Meta: Meta{Scale: 2}, Src: 0}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)

			var out Reduced
			require.NoError(t, json.Unmarshal(data, &out))

			assert.Equal(t, tt.in, out)
		})
	}
}

func TestUnmarshalEmptyDefaultsToText(t *testing.T) {
	var r Reduced
	require.NoError(t, json.Unmarshal([]byte(`{"dataURLs":[],"imgStates":[]}`), &r))

	assert.Equal(t, EncodingText, r.Encoding)
	assert.Empty(t, r.Payloads)
	assert.NotNil(t, r.States)
}

func TestUnmarshalRejectsMixedEncodings(t *testing.T) {
	var r Reduced
	err := json.Unmarshal([]byte(`{"dataURLs":["data:image/png;base64,AA==",{"type":"image/png","data":"AA=="}],"imgStates":[]}`), &r)
	assert.Error(t, err)
}

func TestUnmarshalRejectsUnknownShape(t *testing.T) {
	var r Reduced
	err := json.Unmarshal([]byte(`{"dataURLs":[42],"imgStates":[]}`), &r)
	assert.Error(t, err)
}

func TestParseDataURL(t *testing.T) {
	b := pngBlob(9)

	parsed, err := ParseDataURL(b.DataURL())
	require.NoError(t, err)
	assert.Equal(t, b, parsed)
	assert.Equal(t, "png", parsed.Subtype())
	assert.True(t, parsed.IsImage())

	tests := []struct {
		name  string
		input string
	}{
		{"no scheme", "image/png;base64,AAAA"},
		{"no separator", "data:image/png;base64"},
		{"not base64", "data:text/plain,hello"},
		{"bad payload", "data:image/png;base64,!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataURL(tt.input)
			assert.ErrorIs(t, err, ErrInvalidDataURL)
		})
	}
}

func TestNewBlobSniffsMIME(t *testing.T) {
	b := NewBlob(pngBlob(1).Data)
	assert.Equal(t, "image/png", b.MIME)

	text := NewBlob([]byte("plain words"))
	assert.False(t, text.IsImage())
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	h := materialize(t, reg, pngBlob(1))
	assert.True(t, h.IsRuntime())
	assert.Equal(t, 1, reg.Len())

	b, err := reg.Fetch(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, pngBlob(1).Data, b.Data)

	inline, err := reg.Fetch(ctx, Handle(pngBlob(2).DataURL()))
	require.NoError(t, err)
	assert.Equal(t, pngBlob(2).Data, inline.Data)

	reg.Release(h)
	_, err = reg.Fetch(ctx, h)
	assert.ErrorIs(t, err, ErrUnknownHandle)

	_, err = reg.Fetch(ctx, "https://example.com/a.png")
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

type stubFetcher struct {
	urls []string
}

func (s *stubFetcher) FetchImage(_ context.Context, url string) (Blob, error) {
	s.urls = append(s.urls, url)
	return pngBlob(5), nil
}

func TestRegistryRemote(t *testing.T) {
	f := &stubFetcher{}
	reg := NewRegistry(WithRemote(f))

	b, err := reg.Fetch(context.Background(), "https://example.com/img/1")
	require.NoError(t, err)

	assert.Equal(t, pngBlob(5).Data, b.Data)
	assert.Equal(t, []string{"https://example.com/img/1"}, f.urls)
}

func TestRegistryHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRegistry().Materialize(ctx, pngBlob(1))
	assert.ErrorIs(t, err, context.Canceled)
}
