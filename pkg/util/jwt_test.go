package util

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("duke@example.com", "Duke", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "duke@example.com", claims.Email)
	assert.Equal(t, "Duke", claims.Name)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestParseJWTRejects(t *testing.T) {
	expired, err := GenerateJWT("duke@example.com", "", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err, "expired token")

	noEmail, err := GenerateJWT("", "", "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(noEmail, "secret")
	assert.EqualError(t, err, "missing email claim in token")
}

func TestExtractToken(t *testing.T) {
	tcases := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "Bearer abc", want: "abc"},
		{header: "bearer abc", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "Bearer", want: ""},
	}
	for _, tc := range tcases {
		r := httptest.NewRequest("GET", "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		assert.Equal(t, tc.want, ExtractToken(r), tc.header)
	}
}
