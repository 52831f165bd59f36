package inoreader

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

type bodyKind int

const (
	bodyEmpty bodyKind = iota
	bodyJSON
	bodyText
)

func (k bodyKind) String() string {
	switch k {
	case bodyJSON:
		return "json"
	case bodyText:
		return "text"
	default:
		return "empty"
	}
}

// responseBody is a successful response, classified from the status code
// and Content-Type header only.
type responseBody struct {
	kind bodyKind
	data []byte
}

func classifyResponse(statusCode int, contentType string, data []byte) responseBody {
	if statusCode == http.StatusNoContent || statusCode == http.StatusResetContent || len(data) == 0 {
		return responseBody{kind: bodyEmpty}
	}
	if isJSONContentType(contentType) {
		return responseBody{kind: bodyJSON, data: data}
	}
	return responseBody{kind: bodyText, data: data}
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func (b responseBody) decode(v any) error {
	if b.kind != bodyJSON {
		return fmt.Errorf("expected a JSON response, got %s", b.kind)
	}
	if err := json.Unmarshal(b.data, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (b responseBody) text() string {
	return string(b.data)
}

// requestBody is a form-urlencoded request body.
type requestBody interface {
	Encode() string
}

// Params is a flat form body or query. Keys are encoded in sorted order.
type Params map[string]string

// Encode implements requestBody.
func (p Params) Encode() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p[k]))
	}
	return sb.String()
}

// Form is an ordered form body that may repeat a field, as edit-tag does
// with one i= field per item.
type Form struct {
	fields [][2]string
}

// Add appends a field and returns the form.
func (f *Form) Add(key, value string) *Form {
	f.fields = append(f.fields, [2]string{key, value})
	return f
}

// Encode implements requestBody, preserving insertion order.
func (f *Form) Encode() string {
	var sb strings.Builder
	for i, kv := range f.fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv[0]))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv[1]))
	}
	return sb.String()
}
