package http

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/sokoswift/internal/session"
)

// SessionLoader attaches the caller's session to every request, starting a
// new one when the cookie is missing or its token does not verify.
type SessionLoader struct {
	manager      *session.Manager
	cookieName   string
	secureCookie bool
}

func NewSessionLoader(manager *session.Manager, cookieName string, secureCookie bool) *SessionLoader {
	return &SessionLoader{
		manager:      manager,
		cookieName:   cookieName,
		secureCookie: secureCookie,
	}
}

func (l *SessionLoader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := l.resume(r)
		if sess == nil {
			var err error
			sess, err = l.Start(w)
			if err != nil {
				log.Error().Err(err).Msg("Failed to start session")
				respondWithError(w, http.StatusInternalServerError, "Failed to start session")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// Start opens a fresh session and writes its cookie.
func (l *SessionLoader) Start(w http.ResponseWriter) (*session.Session, error) {
	sess, err := l.manager.Start()
	if err != nil {
		return nil, err
	}
	if err := l.setCookie(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (l *SessionLoader) resume(r *http.Request) *session.Session {
	cookie, err := r.Cookie(l.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := l.manager.Resume(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("Discarding session cookie")
		return nil
	}
	return sess
}

func (l *SessionLoader) setCookie(w http.ResponseWriter, sess *session.Session) error {
	token, err := l.manager.Token(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     l.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   l.manager.MaxAge(),
		HttpOnly: true,
		Secure:   l.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

type identityKey struct{}

// RequireAuth resolves the session identity and rejects anonymous callers
// with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		identity, err := sess.Identity(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to read session identity")
			respondWithError(w, http.StatusInternalServerError, "Failed to read session")
			return
		}
		if !identity.Authenticated() {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) session.Identity {
	identity, _ := ctx.Value(identityKey{}).(session.Identity)
	return identity
}
