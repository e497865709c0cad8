// FIDO U2F Go Library
// Copyright 2015 The FIDO U2F Go Library Authors. All rights reserved.

package u2f

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/gravitational/trace"
)

const u2fVersion = "U2F_V2"

const (
	challengeRawLen = 32
	// challengeLen is the unpadded base64url encoding of challengeRawLen bytes.
	challengeLen = 43
	// publicKeyLen is an uncompressed P-256 point, 0x04 || X || Y.
	publicKeyLen = 65
	counterLen   = 4
)

// decodeBase64 accepts both alphabets. Browsers emit unpadded base64url for
// these fields; older relying-party stacks emitted standard base64 for the
// same fields, and real tokens must keep working against either.
func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, trace.Wrap(ErrFormat, "base64 decode: %v", err)
	}
	return b, nil
}

// encodeBase64 emits unpadded base64url, the variant the client-side JS
// re-decodes for challenges and key handles.
func encodeBase64(buf []byte) string {
	return base64.RawURLEncoding.EncodeToString(buf)
}

func genChallenge() (string, error) {
	challenge := make([]byte, challengeRawLen)
	n, err := rand.Read(challenge)
	if err != nil {
		return "", trace.Wrap(ErrRandomGen, "%v", err)
	}
	if n != challengeRawLen {
		return "", trace.Wrap(ErrRandomGen)
	}
	return encodeBase64(challenge), nil
}

// validChallenge reports whether s is exactly challengeLen characters of
// the unpadded base64url alphabet.
func validChallenge(s string) bool {
	if len(s) != challengeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
