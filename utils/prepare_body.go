package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
)

const (
	ContentTypeJSON        = "application/json"
	ContentTypeForm        = "application/x-www-form-urlencoded"
	ContentTypeMultipart   = "multipart/form-data"
	ContentTypeOctetStream = "application/octet-stream"
)

// FilePart is a file field of a multipart body.
type FilePart struct {
	FileName    string
	ContentType string
	Data        []byte
}

func PrepareBody(body map[string]interface{}, bodyType string) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}

	switch strings.ToLower(bodyType) {
	case ContentTypeJSON:
		buf, err := json.Marshal(body)
		return buf, ContentTypeJSON, err
	case ContentTypeForm:
		vals := url.Values{}
		for k, v := range body {
			vals.Set(k, fmt.Sprintf("%v", v))
		}
		return []byte(vals.Encode()), ContentTypeForm, nil
	case ContentTypeMultipart:
		return prepareMultipart(body)
	default:
		return nil, "", fmt.Errorf("unsupported body_type: %s", bodyType)
	}
}

// prepareMultipart writes fields in key order so the encoded body is stable.
// The returned content type carries the writer's boundary.
func prepareMultipart(body map[string]interface{}) ([]byte, string, error) {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range keys {
		switch v := body[k].(type) {
		case FilePart:
			if err := writeFilePart(w, k, v); err != nil {
				return nil, "", err
			}
		case *FilePart:
			if err := writeFilePart(w, k, *v); err != nil {
				return nil, "", err
			}
		default:
			if err := w.WriteField(k, fmt.Sprintf("%v", v)); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", k, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f FilePart) error {
	ct := f.ContentType
	if ct == "" {
		ct = ContentTypeOctetStream
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.FileName))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", field, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("write part %s: %w", field, err)
	}
	return nil
}
