package middleware

import (
	"net/http"
	"sync"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CookieConfig names the three cookie slots and their attributes, plus the
// browser nonce cookie used to collapse concurrent cart creation.
type CookieConfig struct {
	CartIDName   string
	AccessName   string
	RefreshName  string
	MaxAge       int
	Secure       bool
	ClientName   string
	ClientMaxAge int
}

func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		CartIDName:   "cart_id",
		AccessName:   "cart_token",
		RefreshName:  "cart_refresh_token",
		MaxAge:       60 * 60 * 24 * 30,
		ClientName:   "cart_client",
		ClientMaxAge: 60 * 60,
	}
}

// CookieSessionStore is the session store of one request. It reads the
// incoming cookies once and writes Set-Cookie headers on Flush.
type CookieSessionStore struct {
	*services.MemorySessionStore

	c       *gin.Context
	cfg     CookieConfig
	mu      sync.Mutex
	dirty   bool
	cleared bool
}

// ForRequest builds the store from the request's cookies. A partial triple
// is treated as no session.
func ForRequest(c *gin.Context, cfg CookieConfig) *CookieSessionStore {
	session := &models.CartSession{
		CartID:       cookieValue(c, cfg.CartIDName),
		AccessToken:  cookieValue(c, cfg.AccessName),
		RefreshToken: cookieValue(c, cfg.RefreshName),
	}
	return &CookieSessionStore{
		MemorySessionStore: services.NewMemorySessionStore(session),
		c:                  c,
		cfg:                cfg,
	}
}

func cookieValue(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}

func (s *CookieSessionStore) Persist(session models.CartSession) {
	s.MemorySessionStore.Persist(session)
	s.mark(false)
}

func (s *CookieSessionStore) ApplyRotation(issued uint64, accessToken string) bool {
	changed := s.MemorySessionStore.ApplyRotation(issued, accessToken)
	if changed {
		s.mark(false)
	}
	return changed
}

func (s *CookieSessionStore) Clear() {
	s.MemorySessionStore.Clear()
	s.mark(true)
}

func (s *CookieSessionStore) mark(cleared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	s.cleared = cleared
}

// Flush writes the pending cookie changes. It must run before the response
// body is written.
func (s *CookieSessionStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return
	}
	s.dirty = false

	session := s.MemorySessionStore.Read()
	if s.cleared || session == nil {
		for _, name := range []string{s.cfg.CartIDName, s.cfg.AccessName, s.cfg.RefreshName} {
			s.write(name, "", -1)
		}
		return
	}
	s.write(s.cfg.CartIDName, session.CartID, s.cfg.MaxAge)
	s.write(s.cfg.AccessName, session.AccessToken, s.cfg.MaxAge)
	s.write(s.cfg.RefreshName, session.RefreshToken, s.cfg.MaxAge)
}

func (s *CookieSessionStore) write(name, value string, maxAge int) {
	setCookie(s.c, s.cfg, name, value, maxAge)
}

func setCookie(c *gin.Context, cfg CookieConfig, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

const clientNonceKey = "client_nonce"

// ClientNonce gives every browser a short-lived random nonce cookie on first
// contact and exposes it through ClientKey.
func ClientNonce(cfg CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.ClientName == "" {
			c.Next()
			return
		}
		nonce := cookieValue(c, cfg.ClientName)
		if _, err := uuid.Parse(nonce); err != nil {
			nonce = uuid.New().String()
			setCookie(c, cfg, cfg.ClientName, nonce, cfg.ClientMaxAge)
		}
		c.Set(clientNonceKey, nonce)
		c.Next()
	}
}

// ClientKey identifies the browser for collapsing concurrent cart creation.
// It is empty when ClientNonce did not run.
func ClientKey(c *gin.Context) string {
	return c.GetString(clientNonceKey)
}
