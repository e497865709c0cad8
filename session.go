// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/subtle"
	"encoding/json"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
)

// challengeTimeout bounds how long an issued challenge stays usable.
const challengeTimeout = 5 * time.Minute

// Session tracks one registration or authentication flow between issuing a
// challenge and verifying the response. A Session is not safe for
// concurrent use; independent sessions are.
type Session struct {
	challenge string
	appID     string
	origin    string
	keyHandle []byte
	userKey   *ecdsa.PublicKey

	clock   clockwork.Clock
	timeout time.Duration
	issued  time.Time
}

// SessionOption configures a Session at construction time.
type SessionOption func(*Session)

// WithClock substitutes the clock used for challenge expiry.
func WithClock(clock clockwork.Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// WithTimeout changes the challenge lifetime. Zero disables expiry.
func WithTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) { s.timeout = timeout }
}

// NewSession creates an empty session. Callers must set the app ID and
// origin before verifying, and additionally a key handle and public key
// before authenticating.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		clock:   clockwork.NewRealClock(),
		timeout: challengeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAppID sets the U2F AppID the session's credentials are scoped to.
func (s *Session) SetAppID(appID string) {
	s.appID = appID
}

// SetOrigin sets the origin the browser must echo in its client data.
func (s *Session) SetOrigin(origin string) {
	s.origin = origin
}

// SetChallenge injects a previously issued challenge instead of generating
// one. The challenge must be exactly the unpadded base64url encoding of 32
// bytes; anything else leaves the session unchanged.
func (s *Session) SetChallenge(challenge string) error {
	if !validChallenge(challenge) {
		return trace.Wrap(ErrChallenge, "challenge must be %d base64url characters", challengeLen)
	}
	s.challenge = challenge
	s.issued = s.clock.Now()
	return nil
}

// SetKeyHandle records the key handle issued at registration, as the
// base64url string the relying party stored.
func (s *Session) SetKeyHandle(keyHandle string) error {
	kh, err := decodeBase64(keyHandle)
	if err != nil {
		return trace.Wrap(err, "key handle")
	}
	s.keyHandle = kh
	return nil
}

// SetPublicKey loads the user public key registered for the key handle.
// raw is the 65 byte uncompressed P-256 point from the registration.
func (s *Session) SetPublicKey(raw []byte) error {
	if len(raw) != publicKeyLen {
		return trace.Wrap(ErrCrypto, "public key must be %d bytes", publicKeyLen)
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), raw)
	if x == nil {
		return trace.Wrap(ErrCrypto, "public key is not a point on P-256")
	}
	s.userKey = &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	return nil
}

// ensureChallenge generates the challenge on first use. The challenge is
// stable for the rest of the session once set.
func (s *Session) ensureChallenge() (string, error) {
	if s.challenge != "" {
		return s.challenge, nil
	}
	challenge, err := genChallenge()
	if err != nil {
		return "", trace.Wrap(err)
	}
	s.challenge = challenge
	s.issued = s.clock.Now()
	return challenge, nil
}

func (s *Session) expired() bool {
	return s.timeout > 0 && !s.issued.IsZero() &&
		s.clock.Now().Sub(s.issued) > s.timeout
}

// RegisterRequest creates the registration challenge sent to the browser.
func (s *Session) RegisterRequest() (*RegisterRequest, error) {
	if s.appID == "" {
		return nil, trace.BadParameter("app id not set")
	}
	challenge, err := s.ensureChallenge()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &RegisterRequest{
		Challenge: challenge,
		Version:   u2fVersion,
		AppID:     s.appID,
	}, nil
}

// SignRequest creates the authentication challenge for the registered key.
func (s *Session) SignRequest() (*SignRequest, error) {
	if s.appID == "" {
		return nil, trace.BadParameter("app id not set")
	}
	if len(s.keyHandle) == 0 {
		return nil, trace.BadParameter("key handle not set")
	}
	challenge, err := s.ensureChallenge()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &SignRequest{
		KeyHandle: encodeBase64(s.keyHandle),
		Version:   u2fVersion,
		Challenge: challenge,
		AppID:     s.appID,
	}, nil
}

// verifyClientData checks the challenge and origin the browser echoed.
// The challenge comparison runs before any signature work.
func (s *Session) verifyClientData(clientData []byte) error {
	var cd ClientData
	if err := json.Unmarshal(clientData, &cd); err != nil {
		return trace.Wrap(err, "client data is not valid JSON")
	}

	if _, err := s.ensureChallenge(); err != nil {
		return trace.Wrap(err)
	}
	if len(cd.Challenge) != len(s.challenge) ||
		subtle.ConstantTimeCompare([]byte(cd.Challenge), []byte(s.challenge)) != 1 {
		return trace.Wrap(ErrChallenge)
	}

	if cd.Origin != s.origin {
		return trace.Wrap(ErrOrigin, "got origin %q", cd.Origin)
	}

	return nil
}
