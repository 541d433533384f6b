package access

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ErrMissingResourceID marks a request that names no template at all. It
// maps to 400, distinct from forbidden.
var ErrMissingResourceID = errors.New("missing resource identifier")

const maxDiscoveryBody = 1 << 20

// DiscoverTemplateID finds the template id a request refers to, checking in
// strict order: body field "template_id", body field "logbook_template_id",
// path parameter "template_id", path parameter "templateId", path parameter
// "id", query parameter "template_id". First non-empty value wins. The
// request body is restored so the handler can still read it.
func DiscoverTemplateID(r *http.Request) (uuid.UUID, error) {
	for _, field := range []string{"template_id", "logbook_template_id"} {
		if v := bodyField(r, field); v != "" {
			return parseTemplateID(v)
		}
	}
	for _, param := range []string{"template_id", "templateId", "id"} {
		if v := chi.URLParam(r, param); v != "" {
			return parseTemplateID(v)
		}
	}
	if v := r.URL.Query().Get("template_id"); v != "" {
		return parseTemplateID(v)
	}
	return uuid.Nil, ErrMissingResourceID
}

func parseTemplateID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, ErrMissingResourceID
	}
	return id, nil
}

// bodyField reads a single string field out of a JSON or form body without
// consuming it for downstream handlers.
func bodyField(r *http.Request, field string) string {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxDiscoveryBody))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	if err != nil {
		return ""
	}

	switch mediaType {
	case "application/json":
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return ""
		}
		if v, ok := payload[field].(string); ok {
			return v
		}
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return ""
		}
		return values.Get(field)
	}
	return ""
}
