package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HMACSignatureService signs settlement traffic with hex HMAC-SHA256.
type HMACSignatureService struct{}

func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func (s *HMACSignatureService) Sign(secretKey string, payload []byte) string {
	return hex.EncodeToString(s.mac(secretKey, payload))
}

// Verify accepts a header carrying one or more comma-separated signatures,
// each optionally prefixed with "sha256=". Providers send several while a
// secret is being rotated; any match is enough.
func (s *HMACSignatureService) Verify(secretKey string, payload []byte, header string) bool {
	if secretKey == "" {
		return false
	}
	expected := s.mac(secretKey, payload)
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "sha256=")
		got, err := hex.DecodeString(candidate)
		if err != nil || len(got) != sha256.Size {
			continue
		}
		if hmac.Equal(expected, got) {
			return true
		}
	}
	return false
}

func (s *HMACSignatureService) mac(secretKey string, payload []byte) []byte {
	m := hmac.New(sha256.New, []byte(secretKey))
	m.Write(payload)
	return m.Sum(nil)
}
