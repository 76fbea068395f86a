// Package image converts viewer image lists between their runtime form and a
// deduplicated, serializable form.
//
// Encodings:
//   - handle: runtime handles minted by a Registry (never persisted)
//   - binary: raw blobs, the compact form used by the local store
//   - text: base64 data URLs, the portable form used by exports and the
//     flatten command
//
// Every conversion passes through the binary form:
//
//	handle --fetch--> binary --encode--> text
//	handle <--materialize-- binary <--decode-- text
//
// Example Usage:
//
//	reg := image.NewRegistry()
//	codec := image.NewCodec(reg)
//	r := image.Reduce(images)
//	if err := codec.ToText(ctx, r); err != nil { ... }
//	restored, err := codec.Expand(ctx, r)
package image
