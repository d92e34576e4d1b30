package token_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/bahodir0902/blogclient/token"
	"github.com/stretchr/testify/require"
)

func makeCredential(t *testing.T, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestDecodeExpiry(t *testing.T) {
	now := time.Now().Unix()

	valid := makeCredential(t, map[string]any{"sub": "user-1", "exp": now + 300})

	exp, ok := token.DecodeExpiry(valid)
	require.True(t, ok)
	require.Equal(t, now+300, exp)
}

func TestDecodeExpiryMalformed(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`))
	notJSON := header + "." + base64.RawURLEncoding.EncodeToString([]byte("plain text")) + ".sig"

	cases := []struct {
		name       string
		credential string
	}{
		{"empty string", ""},
		{"no delimiter", "thisisnotatoken"},
		{"wrong segment count", "one.two"},
		{"invalid base64 claims", header + ".!!!not-base64!!!.sig"},
		{"claims not JSON", notJSON},
		{"missing exp", makeCredential(t, map[string]any{"sub": "user-1"})},
		{"non-numeric exp", makeCredential(t, map[string]any{"exp": "tomorrow"})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exp, ok := token.DecodeExpiry(tc.credential)
			require.False(t, ok)
			require.Zero(t, exp)
		})
	}
}

func TestUntilExpiry(t *testing.T) {
	now := time.Now()

	credential := makeCredential(t, map[string]any{"exp": now.Unix() + 60})

	remaining, ok := token.UntilExpiry(credential, now)
	require.True(t, ok)
	require.InDelta(t, float64(60*time.Second), float64(remaining), float64(time.Second))
}

func TestUntilExpiryPastExpiryClampsToZero(t *testing.T) {
	now := time.Now()

	credential := makeCredential(t, map[string]any{"exp": now.Unix() - 600})

	remaining, ok := token.UntilExpiry(credential, now)
	require.True(t, ok)
	require.Equal(t, time.Duration(0), remaining)
}

func TestUntilExpiryUndecodable(t *testing.T) {
	_, ok := token.UntilExpiry("garbage", time.Now())
	require.False(t, ok)
}
