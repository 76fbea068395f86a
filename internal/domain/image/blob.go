package image

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultMIME = "application/octet-stream"

// Blob is image bytes plus their MIME type
type Blob struct {
	MIME string `json:"type"`
	Data []byte `json:"data"`
}

// NewBlob wraps data, sniffing the MIME type from its content
func NewBlob(data []byte) Blob {
	return Blob{MIME: mimetype.Detect(data).String(), Data: data}
}

// IsImage reports whether the blob's MIME type is an image type
func (b Blob) IsImage() bool {
	return strings.HasPrefix(b.mimeType(), "image/")
}

// Subtype returns the MIME subtype without parameters ("png" for "image/png")
func (b Blob) Subtype() string {
	mt := b.mimeType()
	if i := strings.IndexByte(mt, '/'); i >= 0 {
		mt = mt[i+1:]
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

func (b Blob) mimeType() string {
	if b.MIME != "" {
		return b.MIME
	}
	return mimetype.Detect(b.Data).String()
}

// DataURL encodes the blob as a base64 data URL
func (b Blob) DataURL() string {
	mt := b.MIME
	if mt == "" {
		mt = mimetype.Detect(b.Data).String()
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// ParseDataURL decodes a base64 data URL back into a blob
func ParseDataURL(s string) (Blob, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Blob{}, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Blob{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	mt, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return Blob{}, fmt.Errorf("%w: only base64 data URLs are supported", ErrInvalidDataURL)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Blob{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}

	if mt == "" {
		mt = mimetype.Detect(data).String()
	}
	if mt == "" {
		mt = defaultMIME
	}
	return Blob{MIME: mt, Data: data}, nil
}
