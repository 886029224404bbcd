package auth

import (
	"net/http"
	"strings"
)

// CredentialExtractor pulls a bearer credential out of one handshake source.
// Extractors return ("", false) when their source carries nothing.
type CredentialExtractor func(r *http.Request) (string, bool)

// FromAuthorizationHeader reads "Authorization: Bearer <token>".
func FromAuthorizationHeader(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// FromQueryParam reads the token from a named query parameter.
func FromQueryParam(name string) CredentialExtractor {
	return func(r *http.Request) (string, bool) {
		token := r.URL.Query().Get(name)
		return token, token != ""
	}
}

// FromCookie reads the token from a named cookie.
func FromCookie(name string) CredentialExtractor {
	return func(r *http.Request) (string, bool) {
		cookie, err := r.Cookie(name)
		if err != nil || cookie.Value == "" {
			return "", false
		}
		return cookie.Value, true
	}
}

// ExtractCredential tries each extractor in order and returns the first hit.
func ExtractCredential(r *http.Request, extractors []CredentialExtractor) (string, bool) {
	for _, extract := range extractors {
		if token, ok := extract(r); ok {
			return token, true
		}
	}
	return "", false
}
