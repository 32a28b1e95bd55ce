package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Request fires method/url at h with an optional JSON body and headers and
// returns the recorder.
func Request(t *testing.T, h http.Handler, method, url string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, url, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON unmarshals the recorder body into a generic map.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// AssertJSONStatus checks the status and the envelope's success flag, and
// returns the decoded body.
func AssertJSONStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()
	assert.Equal(t, status, rec.Code, "body: %s", rec.Body.String())

	body := DecodeJSON(t, rec)
	assert.Equal(t, status < 400, body["success"], "success flag for status %d", status)
	return body
}

// AssertJSONEqual compares two JSON documents ignoring key order and
// whitespace.
func AssertJSONEqual(t *testing.T, expected, actual []byte) {
	t.Helper()

	var exp, act any
	require.NoError(t, json.Unmarshal(expected, &exp), "expected is not valid JSON")
	require.NoError(t, json.Unmarshal(actual, &act), "actual is not valid JSON: %s", actual)
	assert.Equal(t, exp, act)
}
