// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.

package u2f

import (
	"fmt"
	"time"

	"github.com/gravitational/trace"
	"github.com/mailgun/ttlmap"
)

// SessionStorage holds pending sessions between the challenge and response
// halves of a flow. Implementations may back this with a database; the in
// memory implementation below suits single process relying parties.
type SessionStorage interface {
	UpsertSession(user, device string, s *Session) error
	GetSession(user, device string) (*Session, error)
}

const (
	// Capacity 6000 with 60s TTLs allows roughly 100 registrations or
	// authentications per second before old challenges are evicted.
	inMemorySessionCapacity = 6000
	inMemorySessionTTL      = 60 * time.Second
)

type inMemorySessionStorage struct {
	sessions *ttlmap.TtlMap
}

// InMemorySessionStorage returns a SessionStorage keeping pending sessions
// in process memory with a bounded lifetime.
func InMemorySessionStorage() (SessionStorage, error) {
	m, err := ttlmap.NewMap(inMemorySessionCapacity)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &inMemorySessionStorage{sessions: m}, nil
}

func (s *inMemorySessionStorage) key(user, device string) string {
	return fmt.Sprintf("%s-%s", user, device)
}

func (s *inMemorySessionStorage) UpsertSession(user, device string, sess *Session) error {
	return s.sessions.Set(s.key(user, device), sess, int(inMemorySessionTTL.Seconds()))
}

func (s *inMemorySessionStorage) GetSession(user, device string) (*Session, error) {
	v, ok := s.sessions.Get(s.key(user, device))
	if !ok {
		return nil, trace.NotFound("session not found or expired")
	}
	sess, ok := v.(*Session)
	if !ok {
		return nil, trace.NotFound("bug: session storage returned %T instead of *u2f.Session", v)
	}
	return sess, nil
}
