package util

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "s3cret", time.Hour)
	require.NoError(t, err)

	userID, err := ParseJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, 42, userID)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	_, err = ParseJWT(token, "")
	assert.Error(t, err)
}

func TestParseClaims_Role(t *testing.T) {
	token, err := GenerateJWTWithRole(7, "admin", "s3cret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseClaims(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 7, Role: "admin"}, claims)

	token, err = GenerateJWT(7, "s3cret", time.Hour)
	require.NoError(t, err)
	claims, err = ParseClaims(token, "s3cret")
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
}

func TestParseJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(42, "s3cret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "s3cret")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, ExtractToken(r), tt.header)
	}
}
