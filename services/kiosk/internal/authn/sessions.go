package authn

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/session"
	"github.com/google/uuid"
)

const touchInterval = time.Minute

// SessionManager issues and resolves cookie sessions. Records are written
// straight to the session store.
type SessionManager struct {
	store      session.Store
	cookieName string
	ttl        time.Duration
	now        func() time.Time
	logger     core.Logger
}

func NewSessionManager(store session.Store, cfg *core.Config, logger core.Logger) *SessionManager {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &SessionManager{
		store:      store,
		cookieName: cfg.GetStringOrDef("session.cookie.name", "kiosk_session"),
		ttl:        cfg.GetDurationOrDef("session.ttl", 12*time.Hour),
		now:        time.Now,
		logger:     logger.With("component", "SessionManager"),
	}
}

func (m *SessionManager) Create(ctx context.Context, w http.ResponseWriter, r *http.Request, p Principal) error {
	id, err := newSessionID()
	if err != nil {
		return fmt.Errorf("cannot generate session id: %w", err)
	}
	now := m.now()
	blob, err := session.Encode(session.Data{
		IP:           clientIP(r),
		LoginTime:    now,
		LastActivity: now,
		UserAgent:    r.UserAgent(),
		Principal:    &session.Principal{Type: p.Type, ID: p.ID.String()},
	})
	if err != nil {
		return err
	}
	rec := &session.Record{ID: id, Expires: now.Add(m.ttl), Session: blob}
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("cannot store session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		Expires:  rec.Expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Resolve returns the principal of the request's session, or nil when there
// is no valid session.
func (m *SessionManager) Resolve(ctx context.Context, r *http.Request) (*Principal, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	rec, err := m.store.Get(ctx, c.Value)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Expired(m.now()) {
		return nil, nil
	}
	data, err := session.Parse(rec)
	if err != nil {
		m.logger.Info("unreadable session", "error", err)
		return nil, nil
	}
	if data.Principal == nil {
		return nil, nil
	}
	id, err := uuid.Parse(data.Principal.ID)
	if err != nil {
		return nil, nil
	}

	if m.now().Sub(data.LastActivity) > touchInterval {
		m.touch(ctx, rec, data)
	}
	return &Principal{Type: data.Principal.Type, ID: id}, nil
}

func (m *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{Name: m.cookieName, Value: "", Path: "/", MaxAge: -1})
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	return m.store.Delete(ctx, c.Value)
}

func (m *SessionManager) touch(ctx context.Context, rec *session.Record, data session.Data) {
	data.LastActivity = m.now()
	blob, err := session.Encode(data)
	if err != nil {
		return
	}
	rec.Session = blob
	if err := m.store.Put(ctx, rec); err != nil {
		m.logger.Info("cannot touch session", "error", err)
	}
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
