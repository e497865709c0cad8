// Go FIDO U2F Library
// Copyright 2015 The Go FIDO U2F Library Authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

// Package u2f implements the server side of the FIDO U2F protocol: issuing
// challenges to the browser and verifying the registration and
// authentication responses signed by a hardware token.
//
// Registration:
//
//	s := u2f.NewSession()
//	s.SetAppID(appID)
//	s.SetOrigin(origin)
//	req, err := s.RegisterRequest()
//	// send req to the browser, receive resp
//	reg, err := s.Register(resp, nil)
//	// store reg.KeyHandleString(), reg.PublicKeyBytes() and reg.Counter
//
// Authentication:
//
//	s := u2f.NewSession()
//	s.SetAppID(appID)
//	s.SetOrigin(origin)
//	s.SetKeyHandle(storedKeyHandle)
//	s.SetPublicKey(storedPublicKey)
//	req, err := s.SignRequest()
//	// send req to the browser, receive resp
//	res, err := s.Authenticate(resp)
//	// reject unless res.Counter increased, then store it
package u2f
