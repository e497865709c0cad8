// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package u2f

import (
	"crypto/x509"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// Example 8.1 in FIDO U2F Raw Message Formats.
const testRegDataHex = "0504b174bc49c7ca254b70d2e5c207cee9cf174820ebd77ea3c65508c26da51b657c1cc6b952f8621697936482da0a6d3d3826a59095daf6cd7c03e2e60385d2f6d9402a552dfdb7477ed65fd84133f86196010b2215b57da75d315b7b9e8fe2e3925a6019551bab61d16591659cbaf00b4950f7abfe6660e2e006f76868b772d70c253082013c3081e4a003020102020a47901280001155957352300a06082a8648ce3d0403023017311530130603550403130c476e756262792050696c6f74301e170d3132303831343138323933325a170d3133303831343138323933325a3031312f302d0603550403132650696c6f74476e756262792d302e342e312d34373930313238303030313135353935373335323059301306072a8648ce3d020106082a8648ce3d030107034200048d617e65c9508e64bcc5673ac82a6799da3c1446682c258c463fffdf58dfd2fa3e6c378b53d795c4a4dffb4199edd7862f23abaf0203b4b8911ba0569994e101300a06082a8648ce3d0403020347003044022060cdb6061e9c22262d1aac1d96d8c70829b2366531dda268832cb836bcd30dfa0220631b1459f09e6330055722c8d89b7f48883b9089b88d60d1d9795902b30410df304502201471899bcc3987e62e8202c9b39c33c19033f7340352dba80fcab017db9230e402210082677d673d891933ade6f617e5dbde2e247e70423fd5ad7804a6d3d3961ef871"

const testExampleClientData = `{"typ":"navigator.id.finishEnrollment","challenge":"vqrS6WXDe1JUs5_c3i4-LkKIHRr-3XVb3azuA5TifHo","cid_pubkey":{"kty":"EC","crv":"P-256","x":"HzQwlfXX7Q4S5MtCCnZUNBw3RMzPO9tOyWjBqRl4tJ8","y":"XVguGFLIZx1fXg3wNqfdbn75hi4-_7-BxhMljw42Ht4"},"origin":"http://example.com"}`

func TestParseRegistrationExample(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)

	r, sig, err := parseRegistration(regData)
	require.NoError(t, err)

	const expectedKeyHandle = "2a552dfdb7477ed65fd84133f86196010b2215b57da75d315b7b9e8fe2e3925a6019551bab61d16591659cbaf00b4950f7abfe6660e2e006f76868b772d70c25"
	require.Equal(t, expectedKeyHandle, hex.EncodeToString(r.KeyHandle))

	const expectedAttestationCert = "3082013c3081e4a003020102020a47901280001155957352300a06082a8648ce3d0403023017311530130603550403130c476e756262792050696c6f74301e170d3132303831343138323933325a170d3133303831343138323933325a3031312f302d0603550403132650696c6f74476e756262792d302e342e312d34373930313238303030313135353935373335323059301306072a8648ce3d020106082a8648ce3d030107034200048d617e65c9508e64bcc5673ac82a6799da3c1446682c258c463fffdf58dfd2fa3e6c378b53d795c4a4dffb4199edd7862f23abaf0203b4b8911ba0569994e101300a06082a8648ce3d0403020347003044022060cdb6061e9c22262d1aac1d96d8c70829b2366531dda268832cb836bcd30dfa0220631b1459f09e6330055722c8d89b7f48883b9089b88d60d1d9795902b30410df"
	require.Equal(t, expectedAttestationCert, hex.EncodeToString(r.AttestationCert.Raw))

	const expectedSig = "304502201471899bcc3987e62e8202c9b39c33c19033f7340352dba80fcab017db9230e402210082677d673d891933ade6f617e5dbde2e247e70423fd5ad7804a6d3d3961ef871"
	require.Equal(t, expectedSig, hex.EncodeToString(sig))

	const expectedPublicKey = "04b174bc49c7ca254b70d2e5c207cee9cf174820ebd77ea3c65508c26da51b657c1cc6b952f8621697936482da0a6d3d3826a59095daf6cd7c03e2e60385d2f6d9"
	require.Equal(t, expectedPublicKey, hex.EncodeToString(r.PublicKeyBytes()))

	err = verifyRegistrationSignature(r, sig, "http://example.com", []byte(testExampleClientData))
	require.NoError(t, err)
}

func TestRegisterExample(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)

	s := NewSession()
	s.SetAppID("http://example.com")
	s.SetOrigin("http://example.com")
	require.NoError(t, s.SetChallenge("vqrS6WXDe1JUs5_c3i4-LkKIHRr-3XVb3azuA5TifHo"))

	resp := RegisterResponse{
		RegistrationData: encodeBase64(regData),
		ClientData:       encodeBase64([]byte(testExampleClientData)),
	}
	reg, err := s.Register(resp, &RegistrationConfig{SkipAttestationVerify: true})
	require.NoError(t, err)

	require.Equal(t, encodeBase64(reg.KeyHandle), reg.KeyHandleString())
	require.True(t, strings.HasPrefix(reg.AttestationCertPEM(), "-----BEGIN CERTIFICATE-----"))
	require.Len(t, reg.PublicKeyBytes(), publicKeyLen)
	require.EqualValues(t, 0x04, reg.PublicKeyBytes()[0])
}

func TestParseRegistrationRejects(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)

	t.Run("too short", func(t *testing.T) {
		_, _, err := parseRegistration(regData[:131])
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("reserved byte", func(t *testing.T) {
		bad := append([]byte(nil), regData...)
		bad[0] = 0x04
		_, _, err := parseRegistration(bad)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("bad cert header", func(t *testing.T) {
		bad := append([]byte(nil), regData...)
		// First cert byte sits after reserved, key and handle.
		bad[1+publicKeyLen+1+64] = 0x31
		_, _, err := parseRegistration(bad)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("short form cert length", func(t *testing.T) {
		bad := append([]byte(nil), regData...)
		bad[1+publicKeyLen+1+64+1] = 0x81
		_, _, err := parseRegistration(bad)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("missing signature", func(t *testing.T) {
		certEnd := 1 + publicKeyLen + 1 + 64 + 0x13c + 4
		_, _, err := parseRegistration(regData[:certEnd])
		require.ErrorIs(t, err, ErrFormat)
	})
}

func TestRegisterOriginMismatch(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)

	s := NewSession()
	s.SetAppID("http://example.com")
	s.SetOrigin("https://evil.com")
	require.NoError(t, s.SetChallenge("vqrS6WXDe1JUs5_c3i4-LkKIHRr-3XVb3azuA5TifHo"))

	resp := RegisterResponse{
		RegistrationData: encodeBase64(regData),
		ClientData:       encodeBase64([]byte(testExampleClientData)),
	}
	_, err = s.Register(resp, &RegistrationConfig{SkipAttestationVerify: true})
	require.ErrorIs(t, err, ErrOrigin)
}

func TestRegisterChallengeMismatch(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)

	s := NewSession()
	s.SetAppID("http://example.com")
	s.SetOrigin("http://example.com")
	require.NoError(t, s.SetChallenge(strings.Repeat("A", challengeLen)))

	resp := RegisterResponse{
		RegistrationData: encodeBase64(regData),
		ClientData:       encodeBase64([]byte(testExampleClientData)),
	}
	_, err = s.Register(resp, &RegistrationConfig{SkipAttestationVerify: true})
	require.ErrorIs(t, err, ErrChallenge)
}

func TestRegisterExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession(WithClock(clock))
	s.SetAppID("http://example.com")
	s.SetOrigin("http://example.com")
	require.NoError(t, s.SetChallenge(strings.Repeat("A", challengeLen)))

	clock.Advance(challengeTimeout + time.Second)

	_, err := s.Register(RegisterResponse{}, nil)
	require.ErrorIs(t, err, ErrExpired)
}

func TestRegisterAttestationCheck(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)

	s := NewSession()
	s.SetAppID("http://example.com")
	s.SetOrigin("http://example.com")
	require.NoError(t, s.SetChallenge("vqrS6WXDe1JUs5_c3i4-LkKIHRr-3XVb3azuA5TifHo"))

	resp := RegisterResponse{
		RegistrationData: encodeBase64(regData),
		ClientData:       encodeBase64([]byte(testExampleClientData)),
	}

	var seen *x509.Certificate
	_, err = s.Register(resp, &RegistrationConfig{
		SkipAttestationVerify: true,
		AttestationCheck: func(cert *x509.Certificate) error {
			seen = cert
			return nil
		},
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Contains(t, seen.Subject.CommonName, "Gnubby")

	_, err = s.Register(resp, &RegistrationConfig{
		SkipAttestationVerify: true,
		AttestationCheck: func(cert *x509.Certificate) error {
			return trace.Wrap(ErrCrypto, "untrusted vendor")
		},
	})
	require.ErrorIs(t, err, ErrCrypto)
}
