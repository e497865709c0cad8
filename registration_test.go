// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package u2f

import (
	"encoding/hex"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestStoredRegistrationRoundTrip(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)
	reg, _, err := parseRegistration(regData)
	require.NoError(t, err)
	reg.Counter = 7

	stored := reg.ToStored()
	require.Equal(t, reg.KeyHandleString(), stored.KeyHandle)
	require.Equal(t, uint32(7), stored.Counter)

	reg2, err := FromStored(*stored)
	require.NoError(t, err)

	require.Equal(t, reg.KeyHandle, reg2.KeyHandle)
	require.Equal(t, reg.PublicKeyBytes(), reg2.PublicKeyBytes())
	require.True(t, reg.AttestationCert.Equal(reg2.AttestationCert))
	require.Equal(t, reg.Counter, reg2.Counter)

	// The persistence form itself survives another cycle untouched.
	require.Empty(t, cmp.Diff(stored, reg2.ToStored()))
}

func TestFromStoredRejects(t *testing.T) {
	_, err := FromStored(StoredRegistration{KeyHandle: "!!", PublicKey: "AA"})
	require.Error(t, err)

	_, err = FromStored(StoredRegistration{
		KeyHandle: encodeBase64([]byte("kh")),
		PublicKey: encodeBase64(make([]byte, 10)),
	})
	require.ErrorIs(t, err, ErrCrypto)
}

func TestRegistrationBinaryRoundTrip(t *testing.T) {
	regData, err := hex.DecodeString(testRegDataHex)
	require.NoError(t, err)

	var reg Registration
	require.NoError(t, reg.UnmarshalBinary(regData))

	buf, err := reg.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, regData, buf)

	var reg2 Registration
	require.NoError(t, reg2.UnmarshalBinary(buf))
	require.Equal(t, reg.KeyHandle, reg2.KeyHandle)
	require.True(t, reg.AttestationCert.Equal(reg2.AttestationCert))
}

func TestMarshalBinaryWithoutRaw(t *testing.T) {
	var reg Registration
	_, err := reg.MarshalBinary()
	require.Error(t, err)
}
