// Package theme holds the light/dark display preference and the stores that
// persist it between page loads.
package theme

import (
	"net/http"
	"strings"
	"time"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// StorageKey is the key the preference is persisted under.
const StorageKey = "theme"

// hintHeader is the client hint carrying the browser's prefers-color-scheme.
const hintHeader = "Sec-CH-Prefers-Color-Scheme"

// Parse accepts "light" or "dark", case-insensitively.
func Parse(s string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return "", false
}

// Toggle flips light to dark and anything else to light.
func (t Theme) Toggle() Theme {
	if t == Light {
		return Dark
	}
	return Light
}

func (t Theme) String() string { return string(t) }

// Icon returns the Font Awesome icon shown on the toggle: the moon offers dark
// mode while light is active, the sun offers light mode while dark is active.
func (t Theme) Icon() string {
	if t == Dark {
		return "fa-sun"
	}
	return "fa-moon"
}

// Store reads and writes the persisted preference.
type Store interface {
	Get(r *http.Request) (Theme, bool)
	Set(w http.ResponseWriter, t Theme)
}

// CookieStore persists the preference in a long-lived cookie named StorageKey.
type CookieStore struct {
	MaxAge time.Duration
	Secure bool
}

func NewCookieStore(secure bool) *CookieStore {
	return &CookieStore{MaxAge: 365 * 24 * time.Hour, Secure: secure}
}

func (s *CookieStore) Get(r *http.Request) (Theme, bool) {
	c, err := r.Cookie(StorageKey)
	if err != nil {
		return "", false
	}
	return Parse(c.Value)
}

func (s *CookieStore) Set(w http.ResponseWriter, t Theme) {
	http.SetCookie(w, &http.Cookie{
		Name:     StorageKey,
		Value:    t.String(),
		Path:     "/",
		MaxAge:   int(s.MaxAge.Seconds()),
		HttpOnly: false,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Resolve returns the stored preference or fallback when nothing valid is stored.
func Resolve(store Store, r *http.Request, fallback Theme) Theme {
	if store != nil {
		if t, ok := store.Get(r); ok {
			return t
		}
	}
	return fallback
}

// ResolvePreferred is Resolve with the client's color-scheme hint consulted
// before the fallback.
func ResolvePreferred(store Store, r *http.Request, fallback Theme) Theme {
	if store != nil {
		if t, ok := store.Get(r); ok {
			return t
		}
	}
	if t, ok := Parse(r.Header.Get(hintHeader)); ok {
		return t
	}
	return fallback
}
