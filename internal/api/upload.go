package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/mbathio/find-and-returned/internal/observability"
)

// UploadFile posts a file as multipart form data under the "file"
// field. onProgress, when non-nil, receives the fraction of bytes sent
// as a percentage between 0 and 100. The multipart body is buffered up
// front so a 401-triggered retry can resend it.
func (c *Client) UploadFile(ctx context.Context, path, filename string, r io.Reader, onProgress func(float64), out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("failed to read upload payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	payload := buf.Bytes()
	contentType := mw.FormDataContentType()

	mkBody := func() (io.Reader, string) {
		return &progressReader{
			r:          bytes.NewReader(payload),
			total:      int64(len(payload)),
			onProgress: onProgress,
		}, contentType
	}
	return c.send(ctx, http.MethodPost, path, mkBody, out)
}

// progressReader counts bytes as the transport consumes them and
// reports fractional progress to the caller.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		observability.UploadBytesTotal.Add(float64(n))
		if p.onProgress != nil && p.total > 0 {
			p.onProgress(float64(p.sent) / float64(p.total) * 100)
		}
	}
	return n, err
}
