package theme

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Theme
		ok   bool
	}{
		{"light", Light, true},
		{"dark", Dark, true},
		{" Dark ", Dark, true},
		{"blue", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestToggle(t *testing.T) {
	assert.Equal(t, Dark, Light.Toggle())
	assert.Equal(t, Light, Dark.Toggle())
	assert.Equal(t, Light, Theme("").Toggle())
	assert.Equal(t, Light, Light.Toggle().Toggle())
}

func TestCookieStoreRoundTrip(t *testing.T) {
	store := NewCookieStore(false)

	rec := httptest.NewRecorder()
	store.Set(rec, Dark)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, StorageKey, cookies[0].Name)
	assert.Equal(t, "dark", cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got, ok := store.Get(req)
	require.True(t, ok)
	assert.Equal(t, Dark, got)
}

func TestCookieStoreIgnoresGarbage(t *testing.T) {
	store := NewCookieStore(false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: StorageKey, Value: "purple"})
	_, ok := store.Get(req)
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	store := NewCookieStore(false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, Light, Resolve(store, req, Light), "defaults to fallback")

	req.Header.Set(hintHeader, "dark")
	assert.Equal(t, Light, Resolve(store, req, Light), "hint ignored by Resolve")
	assert.Equal(t, Dark, ResolvePreferred(store, req, Light), "hint used when nothing stored")

	req.AddCookie(&http.Cookie{Name: StorageKey, Value: "light"})
	assert.Equal(t, Light, ResolvePreferred(store, req, Dark), "stored value wins over hint")

	assert.Equal(t, Dark, Resolve(nil, httptest.NewRequest(http.MethodGet, "/", nil), Dark))
}
