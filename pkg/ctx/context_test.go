package ctx_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/apperror"
	appctx "github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

func run(req *http.Request, h appctx.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestOKEnvelope(t *testing.T) {
	rec, body := run(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.OK("Single Product Fetched", response.M{"product": map[string]any{"name": "Phone"}})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"name": "Phone"}, body["product"])
}

func TestBindJSON(t *testing.T) {
	type input struct {
		Name  string `json:"name"  validate:"required"`
		Email string `json:"email" validate:"required,email"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"John","email":"john@example.com"}`))
	rec, _ := run(req, func(c *appctx.Context) {
		var in input
		require.True(t, c.BindJSON(&in))
		assert.Equal(t, "John", in.Name)
		c.OK("", nil)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	rec, body := run(req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["errors"], "email")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	rec, _ = run(req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{apperror.NotFound("Category not found"), http.StatusNotFound, "Category not found"},
		{apperror.Conflict("Already Registered Please Login"), http.StatusConflict, "Already Registered Please Login"},
		{apperror.Unauthorized("Invalid email or password"), http.StatusUnauthorized, "Invalid email or password"},
		{apperror.New(apperror.KindPaymentDeclined, "Payment declined"), http.StatusPaymentRequired, "Payment declined"},
		{apperror.Wrap(apperror.KindGateway, "Payment gateway unavailable", errors.New("dial tcp 10.0.0.1: refused")), http.StatusBadGateway, "Payment gateway unavailable"},
		{errors.New("mongo: E11000 duplicate key on secret index"), http.StatusInternalServerError, "Internal Server Error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "Request timed out"},
		{fmt.Errorf("orders: create: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "Request timed out"},
		{apperror.Wrap(apperror.KindInternal, "Order could not be completed", context.DeadlineExceeded), http.StatusInternalServerError, "Order could not be completed"},
	}

	for _, tc := range cases {
		rec, body := run(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
			c.Fail(tc.err)
		})
		assert.Equal(t, tc.status, rec.Code, tc.message)
		assert.Equal(t, tc.message, body["message"])
		assert.Equal(t, false, body["success"])
		assert.NotContains(t, rec.Body.String(), "10.0.0.1")
		assert.NotContains(t, rec.Body.String(), "E11000")
	}
}

func TestParamsAndSubject(t *testing.T) {
	r := chi.NewRouter()
	var page int
	var uid string
	r.Get("/users-list/{page}", appctx.Wrap(func(c *appctx.Context) {
		page = c.ParamInt("page", 1)
		uid, _ = c.UserID()
		c.OK("", nil)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users-list/3", nil)
	req = req.WithContext(middleware.WithSubject(req.Context(), "u-1"))
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 3, page)
	assert.Equal(t, "u-1", uid)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users-list/abc", nil))
	assert.Equal(t, 1, page)
}
