package image

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// wireReduced keeps the field names the native flatten command reads
type wireReduced struct {
	DataURLs  []json.RawMessage `json:"dataURLs"`
	ImgStates []Deref           `json:"imgStates"`
}

// MarshalJSON writes text payloads as data URL strings and binary payloads
// as {"type","data"} objects. Runtime handles are refused.
func (r Reduced) MarshalJSON() ([]byte, error) {
	w := wireReduced{
		DataURLs:  make([]json.RawMessage, len(r.Payloads)),
		ImgStates: r.States,
	}
	if w.ImgStates == nil {
		w.ImgStates = []Deref{}
	}

	for i, p := range r.Payloads {
		var (
			raw []byte
			err error
		)
		switch r.Encoding {
		case EncodingText:
			raw, err = sonic.ConfigStd.Marshal(p.Text)
		case EncodingBinary:
			raw, err = sonic.ConfigStd.Marshal(p.Blob)
		case EncodingHandle:
			return nil, fmt.Errorf("marshal reduced images: %w", ErrNotPersistable)
		default:
			return nil, fmt.Errorf("marshal reduced images: unknown encoding %q", r.Encoding)
		}
		if err != nil {
			return nil, err
		}
		w.DataURLs[i] = raw
	}

	return sonic.ConfigStd.Marshal(w)
}

// UnmarshalJSON detects the payload encoding from the element shape
func (r *Reduced) UnmarshalJSON(data []byte) error {
	var w wireReduced
	if err := sonic.ConfigStd.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Reduced{
		Encoding: EncodingText,
		Payloads: make([]Payload, len(w.DataURLs)),
		States:   w.ImgStates,
	}
	if out.States == nil {
		out.States = []Deref{}
	}

	for i, raw := range w.DataURLs {
		enc, p, err := decodePayload(raw)
		if err != nil {
			return fmt.Errorf("payload %d: %w", i, err)
		}
		if i == 0 {
			out.Encoding = enc
		} else if enc != out.Encoding {
			return fmt.Errorf("payload %d: mixed encodings %s and %s", i, out.Encoding, enc)
		}
		out.Payloads[i] = p
	}

	*r = out
	return nil
}

func decodePayload(raw json.RawMessage) (Encoding, Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", Payload{}, fmt.Errorf("empty payload")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := sonic.ConfigStd.Unmarshal(trimmed, &s); err != nil {
			return "", Payload{}, err
		}
		return EncodingText, Payload{Text: s}, nil
	case '{':
		var b Blob
		if err := sonic.ConfigStd.Unmarshal(trimmed, &b); err != nil {
			return "", Payload{}, err
		}
		return EncodingBinary, Payload{Blob: b}, nil
	default:
		return "", Payload{}, fmt.Errorf("unsupported payload shape %q", trimmed[:1])
	}
}
