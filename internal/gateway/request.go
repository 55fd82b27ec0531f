package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
)

// Request describes one outbound call. Path is relative to the gateway base URL.
type Request struct {
	Method string
	// Path segments arrive escaped.
	Path   string
	Query  url.Values
	Body   Body
}

// Body is a request payload. The zero request has no body.
type Body interface {
	encode() (io.Reader, string, error)
}

// JSONBody serializes Value as the request body.
type JSONBody struct {
	Value any
}

func (b JSONBody) encode() (io.Reader, string, error) {
	raw, err := json.Marshal(b.Value)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return bytes.NewReader(raw), "application/json", nil
}

// MultipartBody uploads one file plus optional scalar fields.
type MultipartBody struct {
	FieldName string
	FileName  string
	Content   io.Reader
	Fields    map[string]string
}

const defaultFileField = "file"

func (b MultipartBody) encode() (io.Reader, string, error) {
	if b.Content == nil {
		return nil, "", errors.New("multipart body requires file content")
	}
	if strings.TrimSpace(b.FileName) == "" {
		return nil, "", errors.New("multipart body requires a file name")
	}
	field := b.FieldName
	if field == "" {
		field = defaultFileField
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range b.Fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	part, err := writer.CreateFormFile(field, b.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, b.Content); err != nil {
		return nil, "", fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

// resolve joins path onto base, refusing anything that would escape it.
func resolve(base *url.URL, path string, query url.Values) (*url.URL, error) {
	trimmed := strings.TrimSpace(path)
	if strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "//") {
		return nil, fmt.Errorf("path %q must be relative to the base url", path)
	}
	if strings.ContainsAny(trimmed, "?#") {
		return nil, fmt.Errorf("path %q must not carry a query or fragment", path)
	}
	rel := strings.TrimLeft(trimmed, "/")
	decoded, err := url.PathUnescape(rel)
	if err != nil {
		return nil, fmt.Errorf("path %q is not properly escaped: %w", path, err)
	}
	for _, segment := range strings.Split(rel, "/") {
		if segment, _ = url.PathUnescape(segment); segment == ".." || segment == "." {
			return nil, fmt.Errorf("path %q must not contain dot segments", path)
		}
	}

	// path arrives escaped: Path holds the decoded form, RawPath keeps escaped slashes.
	target := *base
	target.Path = strings.TrimRight(base.Path, "/") + "/" + decoded
	target.RawPath = strings.TrimRight(base.EscapedPath(), "/") + "/" + rel
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	} else {
		target.RawQuery = ""
	}
	return &target, nil
}
