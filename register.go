// FIDO U2F Go Library
// Copyright 2015 The FIDO U2F Go Library Authors. All rights reserved.

package u2f

import (
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"

	"github.com/gravitational/trace"
)

// minRegistrationDataLen is the smallest registration blob worth parsing:
// reserved byte, public key, zero length key handle and room for a
// signature.
const minRegistrationDataLen = 131

// RegistrationConfig controls attestation checking during Register.
type RegistrationConfig struct {
	// SkipAttestationVerify turns off chain verification against RootCAs,
	// so self signed certs such as those produced by VirtualKey pass.
	// AttestationCheck, when set, still runs.
	SkipAttestationVerify bool

	// RootCAs anchors attestation chain verification when set. When nil
	// the chain is not verified and provenance is the caller's policy.
	RootCAs *x509.CertPool

	// AttestationCheck, when set, is called with the attestation
	// certificate before any client data is inspected.
	AttestationCheck func(cert *x509.Certificate) error
}

// Register verifies a RegisterResponse to enrol a new token. The session
// must have its app ID and origin set and a challenge issued or injected.
// The returned Registration should be stored by the caller.
func (s *Session) Register(resp RegisterResponse, cfg *RegistrationConfig) (*Registration, error) {
	if cfg == nil {
		cfg = &RegistrationConfig{}
	}
	if s.appID == "" || s.origin == "" {
		return nil, trace.BadParameter("app id and origin must be set before Register")
	}
	if s.expired() {
		return nil, trace.Wrap(ErrExpired)
	}

	regData, err := decodeBase64(resp.RegistrationData)
	if err != nil {
		return nil, trace.Wrap(err, "registrationData")
	}
	reg, sig, err := parseRegistration(regData)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	if err := verifyAttestation(reg.AttestationCert, cfg); err != nil {
		return nil, trace.Wrap(err)
	}

	clientData, err := decodeBase64(resp.ClientData)
	if err != nil {
		return nil, trace.Wrap(err, "clientData")
	}
	if err := s.verifyClientData(clientData); err != nil {
		return nil, trace.Wrap(err)
	}

	if err := verifyRegistrationSignature(reg, sig, s.appID, clientData); err != nil {
		return nil, trace.Wrap(err)
	}

	log.Debugf("Registered key handle %v for app %v.", reg.KeyHandleString(), s.appID)
	return reg, nil
}

// parseRegistration decodes the raw registration blob:
//
//	1 byte   reserved, 0x05
//	65 bytes user public key
//	1 byte   key handle length
//	n bytes  key handle
//	x bytes  attestation certificate, DER
//	s bytes  signature, DER
//
// The certificate length is taken from its DER header, which real tokens
// always emit in the two length byte form 0x30 0x82 hh ll.
func parseRegistration(buf []byte) (*Registration, []byte, error) {
	if len(buf) <= minRegistrationDataLen {
		return nil, nil, trace.Wrap(ErrFormat, "registration data too short: %d bytes", len(buf))
	}
	if buf[0] != 0x05 {
		return nil, nil, trace.Wrap(ErrFormat, "invalid reserved byte %#x", buf[0])
	}

	var r Registration
	r.raw = buf
	rest := buf[1:]

	x, y := elliptic.Unmarshal(elliptic.P256(), rest[:publicKeyLen])
	if x == nil {
		return nil, nil, trace.Wrap(ErrCrypto, "user public key is not a point on P-256")
	}
	r.PubKey.Curve = elliptic.P256()
	r.PubKey.X = x
	r.PubKey.Y = y
	rest = rest[publicKeyLen:]

	khLen := int(rest[0])
	rest = rest[1:]
	if len(rest) < khLen {
		return nil, nil, trace.Wrap(ErrFormat, "truncated key handle")
	}
	r.KeyHandle = rest[:khLen]
	rest = rest[khLen:]

	if len(rest) < 4 || rest[0] != 0x30 || rest[1] != 0x82 {
		return nil, nil, trace.Wrap(ErrFormat, "attestation certificate is not a two length byte DER SEQUENCE")
	}
	certLen := int(rest[2])<<8 | int(rest[3])
	certLen += 4
	if len(rest) <= certLen {
		return nil, nil, trace.Wrap(ErrFormat, "truncated attestation certificate")
	}
	cert, err := x509.ParseCertificate(rest[:certLen])
	if err != nil {
		return nil, nil, trace.Wrap(ErrCrypto, "attestation certificate: %v", err)
	}
	r.AttestationCert = cert

	sig := rest[certLen:]
	return &r, sig, nil
}

func verifyAttestation(cert *x509.Certificate, cfg *RegistrationConfig) error {
	if cfg.AttestationCheck != nil {
		if err := cfg.AttestationCheck(cert); err != nil {
			return trace.Wrap(err)
		}
	}
	if cfg.SkipAttestationVerify || cfg.RootCAs == nil {
		return nil
	}
	opts := x509.VerifyOptions{Roots: cfg.RootCAs}
	if _, err := cert.Verify(opts); err != nil {
		return trace.Wrap(ErrCrypto, "attestation certificate not trusted: %v", err)
	}
	return nil
}

// verifyRegistrationSignature checks the attestation signature over
// 0x00 || SHA256(appID) || SHA256(clientData) || keyHandle || publicKey.
// Note the layout differs from the authentication one.
func verifyRegistrationSignature(r *Registration, signature []byte, appID string, clientData []byte) error {
	appParam := sha256.Sum256([]byte(appID))
	challenge := sha256.Sum256(clientData)

	buf := []byte{0}
	buf = append(buf, appParam[:]...)
	buf = append(buf, challenge[:]...)
	buf = append(buf, r.KeyHandle...)
	buf = append(buf, r.PublicKeyBytes()...)

	if err := r.AttestationCert.CheckSignature(x509.ECDSAWithSHA256, buf, signature); err != nil {
		return trace.Wrap(ErrCrypto, "registration signature: %v", err)
	}
	return nil
}
