package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"dispatch-console/internal/pkg/validation"
)

// payload produces a fresh request body for each attempt.
type payload func() (io.Reader, string, error)

func jsonPayload(v any) payload {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	return func() (io.Reader, string, error) {
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// UploadFile is one file part of a multipart upload.
type UploadFile struct {
	Field string
	Name  string
	Data  []byte
}

// Upload posts files and form fields as multipart/form-data. Files are
// checked against size and type limits before anything is sent.
func (c *Client) Upload(ctx context.Context, endpoint string, files []UploadFile, fields map[string]string, out any) error {
	allowed := c.uploadTypes
	if allowed == nil {
		allowed = validation.DocumentTypes
	}
	for _, f := range files {
		if err := validation.File(f.Name, int64(len(f.Data)), allowed); err != nil {
			return err
		}
	}

	body, contentType, err := encodeMultipart(files, fields)
	if err != nil {
		return err
	}
	p := func() (io.Reader, string, error) {
		return bytes.NewReader(body), contentType, nil
	}
	return c.request(ctx, http.MethodPost, endpoint, nil, p, out)
}

func encodeMultipart(files []UploadFile, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "file"
		}
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
