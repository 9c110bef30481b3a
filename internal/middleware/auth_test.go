package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedHandler(gotOwner *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotOwner = GetOwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuthLocalMode(t *testing.T) {
	var owner string
	h := APIKeyAuth(nil)(authedHandler(&owner))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, owner, "no keys configured means every caller is anonymous")
}

func TestAPIKeyAuthResolvesOwner(t *testing.T) {
	keys := map[string]string{"user-1": "secret-1", "user-2": "secret-2"}

	tests := []struct {
		name   string
		header string
		status int
		owner  string
	}{
		{"bearer format", "Bearer secret-2", http.StatusOK, "user-2"},
		{"bare key", "secret-1", http.StatusOK, "user-1"},
		{"wrong key", "Bearer nope", http.StatusUnauthorized, ""},
		{"missing header", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var owner string
			h := APIKeyAuth(keys)(authedHandler(&owner))

			req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.owner, owner)
		})
	}
}

func TestAPIKeyAuthSkipsHealth(t *testing.T) {
	var owner string
	h := APIKeyAuth(map[string]string{"user-1": "k"})(authedHandler(&owner))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateEndpointURL(t *testing.T) {
	require.NoError(t, ValidateEndpointURL("https://api.openai.com/v1"))
	require.NoError(t, ValidateEndpointURL("http://llm.example.com:8000/v1"))

	for _, bad := range []string{
		"",
		"ftp://api.example.com",
		"https://localhost:8080/v1",
		"http://127.0.0.1/v1",
		"http://10.0.0.5/v1",
		"http://192.168.1.2/v1",
	} {
		assert.Error(t, ValidateEndpointURL(bad), "url=%q", bad)
	}
}

func TestOriginOf(t *testing.T) {
	origin, err := OriginOf("https://api.example.com/v1/chat/completions?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", origin)

	origin, err = OriginOf("http://host:8080/path")
	require.NoError(t, err)
	assert.Equal(t, "http://host:8080", origin)
}

func TestValidateOwnerID(t *testing.T) {
	require.NoError(t, ValidateOwnerID("user-1_A"))
	assert.Error(t, ValidateOwnerID(""))
	assert.Error(t, ValidateOwnerID("user with spaces"))
	assert.Error(t, ValidateOwnerID("user/../etc"))
}
