// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.

package u2f

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/binary"
	"math/big"

	"github.com/gravitational/trace"
)

// AuthenticationResult carries the verified fields of an assertion. The
// caller decides whether Counter strictly increased since the last
// authentication; a non increasing counter is a cloning signal.
type AuthenticationResult struct {
	// Counter is the token's usage count, decoded from the wire.
	Counter uint32
	// UserPresence is the raw presence byte; the low bit is always set on
	// a verified assertion.
	UserPresence byte
}

type ecdsaSig struct {
	R, S *big.Int
}

type signatureData struct {
	UserPresence byte
	Counter      uint32
	sig          ecdsaSig

	// raw is the presence byte and big endian counter exactly as signed.
	raw []byte
}

// parseSignatureData decodes the raw assertion blob:
//
//	1 byte   user presence, low bit must be set
//	4 bytes  counter, big endian
//	s bytes  signature, DER
func parseSignatureData(buf []byte) (*signatureData, error) {
	if len(buf) <= 1+counterLen {
		return nil, trace.Wrap(ErrFormat, "signature data too short: %d bytes", len(buf))
	}

	var sd signatureData
	sd.UserPresence = buf[0]
	if sd.UserPresence&0x01 == 0 {
		return nil, trace.Wrap(ErrFormat, "user presence bit not set")
	}

	sd.Counter = binary.BigEndian.Uint32(buf[1 : 1+counterLen])
	sd.raw = buf[:1+counterLen]

	rest, err := asn1.Unmarshal(buf[1+counterLen:], &sd.sig)
	if err != nil {
		return nil, trace.Wrap(ErrFormat, "signature: %v", err)
	}
	if len(rest) != 0 {
		return nil, trace.Wrap(ErrFormat, "trailing bytes after signature")
	}

	return &sd, nil
}

// Authenticate verifies a SignResponse assertion. The session must have
// its app ID, origin, key handle and user public key set. The caller
// should persist the returned counter after checking it increased.
func (s *Session) Authenticate(resp SignResponse) (*AuthenticationResult, error) {
	if s.appID == "" || s.origin == "" {
		return nil, trace.BadParameter("app id and origin must be set before Authenticate")
	}
	if len(s.keyHandle) == 0 {
		return nil, trace.BadParameter("key handle not set")
	}
	if s.userKey == nil {
		return nil, trace.BadParameter("user public key not set")
	}
	if s.expired() {
		return nil, trace.Wrap(ErrExpired)
	}

	if resp.KeyHandle != encodeBase64(s.keyHandle) {
		return nil, trace.Wrap(ErrKeyHandle)
	}

	sigData, err := decodeBase64(resp.SignatureData)
	if err != nil {
		return nil, trace.Wrap(err, "signatureData")
	}
	sd, err := parseSignatureData(sigData)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	clientData, err := decodeBase64(resp.ClientData)
	if err != nil {
		return nil, trace.Wrap(err, "clientData")
	}
	if err := s.verifyClientData(clientData); err != nil {
		return nil, trace.Wrap(err)
	}

	if err := verifyAuthenticationSignature(sd, s.userKey, s.appID, clientData); err != nil {
		return nil, trace.Wrap(err)
	}

	log.Debugf("Verified assertion for key handle %v, counter %v.", resp.KeyHandle, sd.Counter)
	return &AuthenticationResult{
		Counter:      sd.Counter,
		UserPresence: sd.UserPresence,
	}, nil
}

// verifyAuthenticationSignature checks the user key signature over
// SHA256(appID) || presence || counter || SHA256(clientData). Unlike the
// registration layout there is no leading zero byte and no key material.
func verifyAuthenticationSignature(sd *signatureData, pubKey *ecdsa.PublicKey, appID string, clientData []byte) error {
	appParam := sha256.Sum256([]byte(appID))
	challenge := sha256.Sum256(clientData)

	buf := make([]byte, 0, len(appParam)+len(sd.raw)+len(challenge))
	buf = append(buf, appParam[:]...)
	buf = append(buf, sd.raw...)
	buf = append(buf, challenge[:]...)
	digest := sha256.Sum256(buf)

	if !ecdsa.Verify(pubKey, digest[:], sd.sig.R, sd.sig.S) {
		return trace.Wrap(ErrCrypto, "assertion signature does not verify")
	}
	return nil
}
