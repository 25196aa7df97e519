package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teamscope/teamscope/internal/api/response"
	"github.com/teamscope/teamscope/internal/authz"
	"github.com/teamscope/teamscope/internal/role"
	"github.com/teamscope/teamscope/internal/scope"
)

// RequireAdmin returns middleware that rejects non-admin identities with 403.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			if !identity.IsAdmin {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Global Admin access required", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authorize returns middleware that runs the authorization engine for the
// route and maps its verdict to a status code: malformed request 400,
// missing identity 401, denial 403.
func Authorize(engine *authz.Engine, required role.Role, sc scope.Scope, opts authz.Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			principal := &authz.Principal{ID: identity.UserID, IsAdmin: identity.IsAdmin}

			err := engine.Authorize(r.Context(), principal, required, sc, buildRequest(r), opts)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			switch verdict := err.(type) {
			case *authz.MalformedRequestError:
				response.Err(w, http.StatusBadRequest, "MALFORMED_REQUEST", verdict.Error(), requestID)
			case *authz.DeniedError:
				response.Err(w, http.StatusForbidden, "FORBIDDEN", verdict.Reason, requestID)
			default:
				slog.Error("authorization failed", "error", err, "requestId", requestID)
				response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization failed", requestID)
			}
		})
	}
}

// buildRequest assembles the engine's typed request view from the HTTP
// request: chi path parameters, top-level JSON body strings, and query
// parameters. The body is re-buffered so handlers can still decode it.
func buildRequest(r *http.Request) authz.Request {
	req := authz.Request{
		Method: r.Method,
		Path:   map[string]string{},
		Body:   map[string]string{},
		Query:  map[string]string{},
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			req.Path[key] = rctx.URLParams.Values[i]
		}
	}

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			req.Query[key] = values[0]
		}
	}

	if r.Body != nil && r.ContentLength != 0 {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err == nil {
			r.Body = io.NopCloser(bytes.NewReader(raw))

			var fields map[string]any
			if json.Unmarshal(raw, &fields) == nil {
				for key, value := range fields {
					if s, ok := value.(string); ok {
						req.Body[key] = s
					}
				}
			}
		}
	}

	return req
}
