package remote

import (
	"bytes"
	"context"
	"fmt"
	"mime"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
)

// UploadImage stores blob in the remote image store and returns its served
// URL. Uploads are throttled by the client's upload rate.
func (c *Client) UploadImage(ctx context.Context, blob image.Blob) (string, error) {
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("upload image: rate limit: %w", err)
	}

	if blob.MIME == "" {
		blob = image.NewBlob(blob.Data)
	}
	filename := "image." + blob.Subtype()

	resp, err := c.request(ctx).
		SetMultipartField("img", filename, blob.MIME, bytes.NewReader(blob.Data)).
		Post("/images/")
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.decode(resp, &out); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload image: response carries no url")
	}

	c.log.Debug("image uploaded", zap.String("url", out.URL), zap.Int("bytes", len(blob.Data)))
	return out.URL, nil
}

// FetchImage downloads a served image through the authenticated client
func (c *Client) FetchImage(ctx context.Context, url string) (image.Blob, error) {
	resp, err := c.request(ctx).Get(url)
	if err != nil {
		return image.Blob{}, fmt.Errorf("fetch image: %w", err)
	}
	if err := check(resp); err != nil {
		return image.Blob{}, fmt.Errorf("fetch image: %w", err)
	}

	data := resp.Body()
	if mt, _, err := mime.ParseMediaType(resp.Header().Get("Content-Type")); err == nil && mt != "application/octet-stream" {
		return image.Blob{MIME: mt, Data: data}, nil
	}
	return image.NewBlob(data), nil
}
