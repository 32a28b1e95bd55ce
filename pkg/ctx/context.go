// Package ctx provides the request context handed to storefront controllers.
//
// A handler receives one *Context instead of (w, r):
//
//	func (h *CategoryController) Show(c *ctx.Context) {
//	    cat, err := h.svc.BySlug(c.Context(), c.Param("slug"))
//	    if err != nil {
//	        c.Fail(err)
//	        return
//	    }
//	    c.OK("Get Single Category Successfully", response.M{"category": cat})
//	}
//
//	router.Get("/get-category/{slug}", "category.show", ctx.Wrap(h.Show))
package ctx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/bind"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/validate"
)

// HandlerFunc is the controller signature.
type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// ─── Context ──────────────────────────────────────────────────────────────────

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// ParamInt parses a positive integer path parameter, falling back to def.
func (c *Context) ParamInt(key string, def int) int {
	n, err := strconv.Atoi(c.Param(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Context returns the request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// UserID returns the subject attached by the sign-in guard.
func (c *Context) UserID() (string, bool) {
	return middleware.SubjectFromCtx(c.R.Context())
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the body into dest. On failure the error
// response has already been written and false is returned.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Fail(apperror.Validation(err.Error(), nil))
		return false
	}
	if validate.HasErrors(errs) {
		c.Fail(apperror.Validation("Validation failed", errs))
		return false
	}
	return true
}

// Validate runs the tag rules on an already populated struct and writes
// the 400 when they fail.
func (c *Context) Validate(v any) bool {
	if errs := validate.Struct(v); validate.HasErrors(errs) {
		c.Fail(apperror.Validation("Validation failed", errs))
		return false
	}
	return true
}

// ─── Responses ────────────────────────────────────────────────────────────────

// OK writes a 200 success envelope.
func (c *Context) OK(message string, payload response.M) {
	c.status = http.StatusOK
	response.OK(c.W, message, payload)
}

// Created writes a 201 success envelope.
func (c *Context) Created(message string, payload response.M) {
	c.status = http.StatusCreated
	response.Created(c.W, message, payload)
}

// Data writes raw bytes with the given content type.
func (c *Context) Data(code int, contentType string, b []byte) {
	c.W.Header().Set("Content-Type", contentType)
	c.W.WriteHeader(code)
	c.status = code
	c.W.Write(b) //nolint:errcheck
}

// Stream copies r to the client with the given content type.
func (c *Context) Stream(code int, contentType string, r io.Reader) {
	c.W.Header().Set("Content-Type", contentType)
	c.W.WriteHeader(code)
	c.status = code
	if _, err := io.Copy(c.W, r); err != nil {
		logger.WithCtx(c.Context()).Warn("stream interrupted", "error", err)
	}
}

// Fail maps err to its HTTP status and writes the failure envelope. Only
// the classified message reaches the client; causes and unclassified
// errors are logged with the request id.
func (c *Context) Fail(err error) {
	ae := apperror.From(err)
	status := ae.Kind.Status()

	// A classified error already carries the message the client should see.
	var classified *apperror.Error
	if errors.Is(err, context.DeadlineExceeded) && !errors.As(err, &classified) {
		status = http.StatusGatewayTimeout
		ae = apperror.New(apperror.KindInternal, "Request timed out")
	}

	log := logger.WithCtx(c.Context())
	switch {
	case status >= 500:
		log.Error("request failed", "kind", ae.Kind.String(), "status", status, "error", err)
	case ae.Cause != nil:
		log.Warn("request rejected", "kind", ae.Kind.String(), "status", status, "error", err)
	}

	c.status = status
	if ae.Kind == apperror.KindValidation && len(ae.Fields) > 0 {
		response.ValidationError(c.W, ae.Message, ae.Fields)
		return
	}
	response.Error(c.W, status, ae.Message)
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
