package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newHandshake(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"bearer token", "Bearer abc123", "abc123", true},
		{"lowercase scheme", "bearer abc123", "abc123", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic abc123", "", false},
		{"empty token", "Bearer ", "", false},
		{"no space", "Bearerabc123", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newHandshake(t, "/ws/devices")
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := FromAuthorizationHeader(r)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromQueryParam(t *testing.T) {
	extract := FromQueryParam("token")

	got, ok := extract(newHandshake(t, "/ws/devices?token=xyz"))
	assert.True(t, ok)
	assert.Equal(t, "xyz", got)

	_, ok = extract(newHandshake(t, "/ws/devices"))
	assert.False(t, ok)
}

func TestFromCookie(t *testing.T) {
	extract := FromCookie("labpulse_token")

	r := newHandshake(t, "/ws/devices")
	r.AddCookie(&http.Cookie{Name: "labpulse_token", Value: "cookietoken"})
	got, ok := extract(r)
	assert.True(t, ok)
	assert.Equal(t, "cookietoken", got)

	_, ok = extract(newHandshake(t, "/ws/devices"))
	assert.False(t, ok)
}

func TestExtractCredentialOrder(t *testing.T) {
	extractors := []CredentialExtractor{
		FromAuthorizationHeader,
		FromQueryParam("token"),
		FromCookie("labpulse_token"),
	}

	// Header wins over query parameter
	r := newHandshake(t, "/ws/devices?token=fromquery")
	r.Header.Set("Authorization", "Bearer fromheader")
	got, ok := ExtractCredential(r, extractors)
	assert.True(t, ok)
	assert.Equal(t, "fromheader", got)

	// Query parameter wins over cookie
	r = newHandshake(t, "/ws/devices?token=fromquery")
	r.AddCookie(&http.Cookie{Name: "labpulse_token", Value: "fromcookie"})
	got, ok = ExtractCredential(r, extractors)
	assert.True(t, ok)
	assert.Equal(t, "fromquery", got)

	// Nothing present
	_, ok = ExtractCredential(newHandshake(t, "/ws/devices"), extractors)
	assert.False(t, ok)
}
