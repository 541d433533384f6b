package access

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDiscoverTemplateID_BodyField(t *testing.T) {
	id := uuid.New()
	req := jsonRequest(t, http.MethodPost, "/api/entries", `{"template_id":"`+id.String()+`","content":"x"}`)

	got, err := DiscoverTemplateID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestDiscoverTemplateID_AlternateBodyField(t *testing.T) {
	id := uuid.New()
	req := jsonRequest(t, http.MethodPost, "/api/entries", `{"logbook_template_id":"`+id.String()+`"}`)

	got, err := DiscoverTemplateID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestDiscoverTemplateID_BodyWinsOverPath(t *testing.T) {
	bodyID := uuid.New()
	pathID := uuid.New()
	req := jsonRequest(t, http.MethodPost, "/api/templates/"+pathID.String()+"/entries",
		`{"template_id":"`+bodyID.String()+`"}`)
	req = withURLParam(req, "template_id", pathID.String())

	got, err := DiscoverTemplateID(req)
	require.NoError(t, err)
	assert.Equal(t, bodyID, got)
}

func TestDiscoverTemplateID_PathParam(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/templates/"+id.String(), nil)
	req = withURLParam(req, "template_id", id.String())

	got, err := DiscoverTemplateID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestDiscoverTemplateID_QueryParam(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/entries?template_id="+id.String(), nil)

	got, err := DiscoverTemplateID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestDiscoverTemplateID_FormBody(t *testing.T) {
	id := uuid.New()
	form := url.Values{"template_id": {id.String()}}
	req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	got, err := DiscoverTemplateID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestDiscoverTemplateID_Missing(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/api/entries", `{"content":"no template here"}`)

	_, err := DiscoverTemplateID(req)
	assert.ErrorIs(t, err, ErrMissingResourceID)
}

func TestDiscoverTemplateID_MalformedID(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/api/entries", `{"template_id":"not-a-uuid"}`)

	_, err := DiscoverTemplateID(req)
	assert.ErrorIs(t, err, ErrMissingResourceID)
}

func TestDiscoverTemplateID_BodyStaysReadable(t *testing.T) {
	id := uuid.New()
	body := `{"template_id":"` + id.String() + `","content":"hello"}`
	req := jsonRequest(t, http.MethodPost, "/api/entries", body)

	_, err := DiscoverTemplateID(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte(body), raw))
}
