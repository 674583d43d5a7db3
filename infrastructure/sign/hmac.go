package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HMACSign implements Signer with HMAC-SHA256 over "fileID:expire".
// Token layout: base64url(fileID) + "." + expire + "." + base64url(mac).
type HMACSign struct {
	secret []byte
}

func NewHMACSign(secret []byte) *HMACSign {
	return &HMACSign{secret: secret}
}

func (s *HMACSign) Sign(fileID string, expire int64) string {
	mac := s.mac(fileID, expire)
	return strings.Join([]string{
		base64.RawURLEncoding.EncodeToString([]byte(fileID)),
		strconv.FormatInt(expire, 10),
		base64.RawURLEncoding.EncodeToString(mac),
	}, ".")
}

func (s *HMACSign) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrSignInvalid
	}

	fileIDRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrSignInvalid
	}
	expire, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrSignInvalid
	}
	gotMac, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrSignInvalid
	}

	fileID := string(fileIDRaw)
	if !hmac.Equal(gotMac, s.mac(fileID, expire)) {
		return "", ErrSignInvalid
	}
	if expire != 0 && time.Now().Unix() > expire {
		return "", ErrSignExpired
	}
	return fileID, nil
}

func (s *HMACSign) mac(fileID string, expire int64) []byte {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%s:%d", fileID, expire)
	return h.Sum(nil)
}
