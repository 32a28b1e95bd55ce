package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// Decision is the outcome of a single guard.
type Decision int

const (
	// Authorized lets the request continue to the next guard or handler.
	Authorized Decision = iota
	// Unauthorized means no usable identity: missing, malformed or expired token.
	Unauthorized
	// Forbidden means a valid identity without the required role.
	Forbidden
	// Failed means the guard could not decide (store unavailable).
	Failed
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return "failed"
	}
}

// Guard inspects a request and decides whether it may proceed. A guard that
// authorizes may return a derived request carrying extra context values.
type Guard interface {
	Check(r *http.Request) (Decision, *http.Request)
}

// GuardFunc adapts a plain function to Guard.
type GuardFunc func(r *http.Request) (Decision, *http.Request)

func (f GuardFunc) Check(r *http.Request) (Decision, *http.Request) { return f(r) }

// Protect runs guards in order and stops at the first decision that is not
// Authorized, answering the client right away. forbiddenStatus is the status
// written for Forbidden (403, or 401 for clients that expect the legacy
// contract).
//
//	admin := middleware.Protect(403, middleware.RequireSignIn(tokens), rbac.RequireAdmin(users))
//	r.Get("/admin-auth", "auth.admin", handler, admin)
func Protect(forbiddenStatus int, guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range guards {
				decision, checked := g.Check(r)
				metrics.AuthDecisions.WithLabelValues(decision.String()).Inc()

				switch decision {
				case Authorized:
					if checked != nil {
						r = checked
					}
					continue
				case Unauthorized:
					response.Unauthorized(w)
				case Forbidden:
					response.Forbidden(w, forbiddenStatus)
				default:
					response.InternalError(w)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ─── Sign-in guard ────────────────────────────────────────────────────────────

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type subjectKey struct{}

// WithSubject stores the authenticated user id in ctx.
func WithSubject(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, userID)
}

// SubjectFromCtx returns the user id attached by RequireSignIn.
func SubjectFromCtx(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subjectKey{}).(string)
	return id, ok && id != ""
}

// SignInGuard verifies the identity token and attaches its subject.
type SignInGuard struct {
	Tokens TokenVerifier
	// AllowQuery also accepts ?token=..., for websocket upgrades where
	// browsers cannot set headers.
	AllowQuery bool
}

// RequireSignIn returns the sign-in guard reading the Authorization header.
func RequireSignIn(tokens TokenVerifier) *SignInGuard {
	return &SignInGuard{Tokens: tokens}
}

func (g *SignInGuard) Check(r *http.Request) (Decision, *http.Request) {
	token := TokenFromRequest(r, g.AllowQuery)
	if token == "" {
		return Unauthorized, nil
	}

	claims, err := g.Tokens.Verify(token)
	if err != nil {
		logger.WithCtx(r.Context()).Debug("auth: token rejected", "error", err)
		return Unauthorized, nil
	}

	return Authorized, r.WithContext(WithSubject(r.Context(), claims.SubjectID()))
}

// TokenFromRequest extracts the raw token. The Authorization header carries
// it bare; a "Bearer " prefix is tolerated.
func TokenFromRequest(r *http.Request, allowQuery bool) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		h = strings.TrimSpace(h[7:])
	}
	if h == "" && allowQuery {
		h = r.URL.Query().Get("token")
	}
	return h
}
