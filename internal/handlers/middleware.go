package handlers

import (
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"strconv"
	"time"

	"gridquiz/internal/models"
	"gridquiz/internal/security"
	"gridquiz/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// formOverhead is allowed on top of the upload limit for the other form fields
const formOverhead = 1 << 20

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessionService *service.SessionService
	csrf           *security.CSRFGenerator
	limiter        *security.RateLimiter
	maxBodyBytes   int64
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessionService *service.SessionService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, uploadMaxBytes int64) *Middleware {
	return &Middleware{
		sessionService: sessionService,
		csrf:           csrf,
		limiter:        limiter,
		maxBodyBytes:   uploadMaxBytes + formOverhead,
	}
}

// RequireSession loads the learner's session from its cookie, starting a new
// one when the cookie is missing, unknown or expired
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var session *models.Session
		if sessionID := security.SessionIDFromRequest(r); sessionID != "" {
			var err error
			session, err = m.sessionService.Validate(sessionID)
			if err != nil && !errors.Is(err, service.ErrSessionNotFound) && !errors.Is(err, service.ErrSessionExpired) {
				respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to validate session", err)
				return
			}
		}

		if session == nil {
			var err error
			session, err = m.sessionService.Create()
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to create session", err)
				return
			}
		}

		http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect parses the form, bounding the body size, and rejects requests
// whose csrf_token does not belong to the session. Must run inside RequireSession.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := GetSessionFromContext(r.Context())
		if session == nil {
			respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, m.maxBodyBytes)
		if err := parseForm(r, m.maxBodyBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondWithError(w, http.StatusRequestEntityTooLarge, MsgUploadTooLarge, "Request body too large", err)
				return
			}
			respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "Failed to parse form", err)
			return
		}

		token := r.PostFormValue(security.CSRFFieldName)
		if token == "" {
			token = r.Header.Get("X-CSRF-Token")
		}
		if !m.csrf.ValidateToken(session.ID, token) {
			log.Printf("CSRF token mismatch for %s %s", r.Method, r.URL.Path)
			respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}

		next(w, r)
	}
}

// RateLimit rejects clients that exceed the limiter's budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", formatSeconds(m.limiter.Window()))
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// GetCSRFToken returns the token forms must carry for the session
func (m *Middleware) GetCSRFToken(sessionID string) (string, error) {
	return m.csrf.GenerateToken(sessionID)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *models.Session {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

func parseForm(r *http.Request, maxMemory int64) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(d.Round(time.Second).Seconds()))
}
