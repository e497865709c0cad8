// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package u2f

import "errors"

// Error kinds returned by the library. Errors are wrapped with trace for
// context; callers match the kind with errors.Is.
var (
	// ErrFormat means a wire payload failed binary or base64 validation.
	ErrFormat = errors.New("u2f: malformed message")
	// ErrChallenge means the challenge was the wrong shape or the client
	// echoed a challenge that does not match the session.
	ErrChallenge = errors.New("u2f: challenge mismatch")
	// ErrOrigin means the client echoed an origin that does not match the
	// session.
	ErrOrigin = errors.New("u2f: origin mismatch")
	// ErrCrypto means a signature, key or certificate failed to verify or
	// decode.
	ErrCrypto = errors.New("u2f: verification failed")
	// ErrKeyHandle means the response referenced a key handle other than
	// the one registered with the session.
	ErrKeyHandle = errors.New("u2f: wrong key handle")
	// ErrExpired means the challenge outlived the session timeout.
	ErrExpired = errors.New("u2f: challenge has expired")
	// ErrRandomGen means the system RNG could not supply challenge bytes.
	ErrRandomGen = errors.New("u2f: unable to generate random bytes")
)
