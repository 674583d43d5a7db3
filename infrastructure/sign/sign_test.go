package sign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewHMACSign([]byte("secret"))

	token := WithDuration(s, "file-123", time.Hour)
	fileID, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "file-123", fileID)
}

func TestVerifyExpiredToken(t *testing.T) {
	s := NewHMACSign([]byte("secret"))

	token := s.Sign("file-123", time.Now().Add(-time.Minute).Unix())
	_, err := s.Verify(token)
	assert.ErrorIs(t, err, ErrSignExpired)
}

func TestVerifyZeroExpiryNeverExpires(t *testing.T) {
	s := NewHMACSign([]byte("secret"))

	token := s.Sign("file-123", 0)
	fileID, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "file-123", fileID)
}

func TestVerifyTamperedToken(t *testing.T) {
	s := NewHMACSign([]byte("secret"))
	token := WithDuration(s, "file-123", time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"flipped byte", "A" + token[1:]},
		{"wrong key", WithDuration(NewHMACSign([]byte("other")), "file-123", time.Hour)},
		{"missing part", token[:len(token)-10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Verify(tt.token)
			if tt.name == "wrong key" {
				assert.ErrorIs(t, err, ErrSignInvalid)
			} else {
				assert.Error(t, err)
			}
			assert.Empty(t, got)
		})
	}
}
