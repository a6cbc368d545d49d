package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

type contextKey string

const principalKey contextKey = "principal"

// maxPrincipalBody bounds the JSON body buffered by BodyPrincipal.
const maxPrincipalBody = 1 << 20

// NewJWTAuth returns an HS256 token authority for the shared secret.
func NewJWTAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token naming username. A zero ttl issues a token without
// expiry.
func IssueToken(ja *jwtauth.JWTAuth, username string, ttl time.Duration) (string, error) {
	if username == "" {
		return "", errors.New("username is required")
	}
	claims := map[string]interface{}{
		"sub":      username,
		"username": username,
	}
	jwtauth.SetIssuedNow(claims)
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}
	_, token, err := ja.Encode(claims)
	return token, err
}

// WithPrincipal stores the acting username in ctx.
func WithPrincipal(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, principalKey, username)
}

// PrincipalFrom returns the acting username, or "" for anonymous requests.
func PrincipalFrom(ctx context.Context) string {
	username, _ := ctx.Value(principalKey).(string)
	return username
}

// Principal reads the token verified by jwtauth.Verifier and stores its
// username claim (falling back to sub) as the principal. Requests without a
// valid token continue anonymously.
func Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
				slog.DebugContext(r.Context(), "Ignoring invalid token", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		username, _ := claims["username"].(string)
		if username == "" {
			username = token.Subject()
		}
		if username == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), username)))
	})
}

// BodyPrincipal accepts the legacy username (or author) body field as the
// principal when no token supplied one. JSON bodies are restored for the
// handler; multipart forms are parsed in place.
func BodyPrincipal(maxMemory int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFrom(r.Context()) != "" || r.Body == nil || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			username := ""
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			switch mediaType {
			case "multipart/form-data":
				if err := r.ParseMultipartForm(maxMemory); err == nil {
					username = firstNonEmpty(r.FormValue("username"), r.FormValue("author"))
				}
			case "application/json", "":
				body, err := io.ReadAll(io.LimitReader(r.Body, maxPrincipalBody))
				if err != nil {
					errorJSON(w, r, http.StatusBadRequest, "Failed to read request body")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				var fields struct {
					Username string `json:"username"`
					Author   string `json:"author"`
				}
				if len(body) > 0 && json.Unmarshal(body, &fields) == nil {
					username = firstNonEmpty(fields.Username, fields.Author)
				}
			}
			if username != "" {
				r = r.WithContext(WithPrincipal(r.Context(), username))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests whose principal is not an admin user.
func RequireAdmin(users *realtycms.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := PrincipalFrom(r.Context())
			if username == "" {
				msg := "Authentication required"
				if _, _, err := jwtauth.FromContext(r.Context()); err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
					msg = jwtauth.ErrorReason(err).Error()
				}
				errorJSON(w, r, http.StatusUnauthorized, msg)
				return
			}
			user, err := users.GetByUsername(r.Context(), username)
			if err != nil {
				if errors.Is(err, realtycms.ErrNotFound) {
					errorJSON(w, r, http.StatusNotFound, "User not found")
					return
				}
				writeError(w, r, err)
				return
			}
			if !user.IsAdmin {
				errorJSON(w, r, http.StatusForbidden, "Only admin users can perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
