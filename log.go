// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.

package u2f

import (
	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Diagnostic output is emitted at Debug level only; embedding processes
// that leave logrus at its default level see nothing.
var log = logrus.WithField(trace.Component, "u2f")
