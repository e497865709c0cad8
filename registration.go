// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"

	"github.com/gravitational/trace"
)

// Registration represents a single enrolment between an application and a
// token. The key handle, public key and usage counter must be stored by
// the relying party.
type Registration struct {
	// KeyHandle is the raw credential id issued by the token.
	KeyHandle []byte
	// PubKey is the user public key generated for this enrolment.
	PubKey ecdsa.PublicKey
	// Counter is the last usage count seen, updated by the caller after
	// each authentication.
	Counter uint32
	// AttestationCert is the device certificate that signed the enrolment.
	AttestationCert *x509.Certificate

	// Raw serialized registration data as received from the token.
	raw []byte
}

// KeyHandleString returns the key handle as the base64url string sent in
// sign requests and stored by the relying party.
func (r *Registration) KeyHandleString() string {
	return encodeBase64(r.KeyHandle)
}

// PublicKeyBytes returns the user public key in its raw 65 byte
// uncompressed form, 0x04 || X || Y.
func (r *Registration) PublicKeyBytes() []byte {
	return elliptic.Marshal(r.PubKey.Curve, r.PubKey.X, r.PubKey.Y)
}

// AttestationCertPEM exports the device attestation certificate as PEM
// text, or "" when the registration carries no certificate.
func (r *Registration) AttestationCertPEM() string {
	if r.AttestationCert == nil {
		return ""
	}
	block := &pem.Block{Type: "CERTIFICATE", Bytes: r.AttestationCert.Raw}
	return string(pem.EncodeToMemory(block))
}

// MarshalBinary implements encoding.BinaryMarshaler with the raw
// registration data received from the token.
func (r *Registration) MarshalBinary() ([]byte, error) {
	if len(r.raw) == 0 {
		return nil, trace.BadParameter("registration was not parsed from raw data")
	}
	return r.raw, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Registration) UnmarshalBinary(data []byte) error {
	reg, _, err := parseRegistration(data)
	if err != nil {
		return trace.Wrap(err)
	}
	*r = *reg
	return nil
}

// StoredRegistration is the string form of a Registration for persistence.
// The key handle, public key and certificate are unpadded base64url.
type StoredRegistration struct {
	KeyHandle   string `json:"keyHandle"`
	PublicKey   string `json:"publicKey"`
	Certificate string `json:"certificate"`
	Counter     uint32 `json:"counter"`
}

// ToStored converts the registration to its persistence form.
func (r *Registration) ToStored() *StoredRegistration {
	stored := &StoredRegistration{
		KeyHandle: r.KeyHandleString(),
		PublicKey: encodeBase64(r.PublicKeyBytes()),
		Counter:   r.Counter,
	}
	if r.AttestationCert != nil {
		stored.Certificate = encodeBase64(r.AttestationCert.Raw)
	}
	return stored
}

// FromStored rebuilds a Registration from its persistence form.
func FromStored(stored StoredRegistration) (*Registration, error) {
	kh, err := decodeBase64(stored.KeyHandle)
	if err != nil {
		return nil, trace.Wrap(err, "key handle")
	}

	pk, err := decodeBase64(stored.PublicKey)
	if err != nil {
		return nil, trace.Wrap(err, "public key")
	}
	if len(pk) != publicKeyLen {
		return nil, trace.Wrap(ErrCrypto, "public key must be %d bytes", publicKeyLen)
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), pk)
	if x == nil {
		return nil, trace.Wrap(ErrCrypto, "public key is not a point on P-256")
	}

	r := &Registration{
		KeyHandle: kh,
		PubKey:    ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y},
		Counter:   stored.Counter,
	}

	if stored.Certificate != "" {
		der, err := decodeBase64(stored.Certificate)
		if err != nil {
			return nil, trace.Wrap(err, "certificate")
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, trace.Wrap(ErrCrypto, "certificate: %v", err)
		}
		r.AttestationCert = cert
	}

	return r, nil
}
