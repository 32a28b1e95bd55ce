package http_test

import (
	"context"
	"errors"
	gohttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/shashiranjanraj/storefront/pkg/http"
	"github.com/shashiranjanraj/storefront/pkg/testkit"
)

func TestPostSendsJSONWithBasicAuth(t *testing.T) {
	mt := testkit.NewMockTransport()
	mt.On(gohttp.MethodPost, "https://api.test/").Reply(200, `{"ok":true}`)

	resp, err := pkghttp.NewClient(mt).Post("https://api.test/graphql").
		BasicAuth("pub", "priv").
		Header("X-Version", "1").
		Body(map[string]string{"query": "q"}).
		Send()
	require.NoError(t, err)
	assert.True(t, resp.OK())

	var out struct{ OK bool }
	require.NoError(t, resp.JSON(&out))
	assert.True(t, out.OK)

	calls := mt.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "application/json", calls[0].Header.Get("Content-Type"))
	assert.Equal(t, "1", calls[0].Header.Get("X-Version"))
	assert.JSONEq(t, `{"query":"q"}`, string(calls[0].Body))

	user, pass, ok := (&gohttp.Request{Header: calls[0].Header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "pub", user)
	assert.Equal(t, "priv", pass)
}

func TestSingleAttemptByDefault(t *testing.T) {
	mt := testkit.NewMockTransport()
	stub := mt.On("", "https://api.test/").Fail(errors.New("connection reset"))

	_, err := pkghttp.NewClient(mt).Post("https://api.test/charge").Send()
	assert.Error(t, err)
	assert.Equal(t, 1, stub.Hits())
}

func TestRetryRecovers(t *testing.T) {
	mt := testkit.NewMockTransport()
	stub := mt.On("", "https://api.test/").
		Fail(errors.New("connection reset")).
		Reply(200, `{}`)

	resp, err := pkghttp.NewClient(mt).Get("https://api.test/token").Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, 2, stub.Hits())
}

func TestRetryStopsOnHTTPResponse(t *testing.T) {
	mt := testkit.NewMockTransport()
	stub := mt.On("", "https://api.test/").Reply(503, `{}`)

	resp, err := pkghttp.NewClient(mt).Get("https://api.test/token").Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Error(t, resp.Throw())
	assert.Equal(t, 1, stub.Hits())
}

func TestRetryHonoursCancellation(t *testing.T) {
	mt := testkit.NewMockTransport()
	mt.On("", "https://api.test/").Fail(errors.New("timeout"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pkghttp.NewClient(mt).Get("https://api.test/").WithContext(ctx).Retry(5, time.Hour).Send()
	assert.Error(t, err)
}
