// FIDO U2F Go Library
// Copyright 2015 The FIDO U2F Go Library Authors. All rights reserved.

package main

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/fidolib/u2f"
)

const appID = "http://localhost:3483"

const demoUser = "demo"

// Normally the registration and counter live in a database. For the
// purposes of the demo, we just store them in memory.
var sessions u2f.SessionStorage
var registration *u2f.Registration

func registerRequest(w http.ResponseWriter, r *http.Request) {
	s := u2f.NewSession()
	s.SetAppID(appID)
	s.SetOrigin(appID)

	req, err := s.RegisterRequest()
	if err != nil {
		log.WithError(err).Error("RegisterRequest failed")
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if err := sessions.UpsertSession(demoUser, "register", s); err != nil {
		log.WithError(err).Error("session storage failed")
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}

	log.Infof("registerRequest: %+v", req)
	json.NewEncoder(w).Encode(req)
}

func registerResponse(w http.ResponseWriter, r *http.Request) {
	var resp u2f.RegisterResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		http.Error(w, "invalid response: "+err.Error(), http.StatusBadRequest)
		return
	}

	s, err := sessions.GetSession(demoUser, "register")
	if err != nil {
		http.Error(w, "registration session not found", http.StatusBadRequest)
		return
	}

	// Attestation roots are a deployment decision; the demo accepts any
	// attestation certificate.
	reg, err := s.Register(resp, &u2f.RegistrationConfig{SkipAttestationVerify: true})
	if err != nil {
		log.WithError(err).Error("Register failed")
		http.Error(w, "error verifying response", http.StatusInternalServerError)
		return
	}

	registration = reg
	log.Infof("Registered key handle %s", reg.KeyHandleString())
	w.Write([]byte("success"))
}

func signRequest(w http.ResponseWriter, r *http.Request) {
	if registration == nil {
		http.Error(w, "registration missing", http.StatusBadRequest)
		return
	}

	s := u2f.NewSession()
	s.SetAppID(appID)
	s.SetOrigin(appID)
	if err := s.SetKeyHandle(registration.KeyHandleString()); err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if err := s.SetPublicKey(registration.PublicKeyBytes()); err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}

	req, err := s.SignRequest()
	if err != nil {
		log.WithError(err).Error("SignRequest failed")
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if err := sessions.UpsertSession(demoUser, "sign", s); err != nil {
		log.WithError(err).Error("session storage failed")
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}

	log.Infof("signRequest: %+v", req)
	json.NewEncoder(w).Encode(req)
}

func signResponse(w http.ResponseWriter, r *http.Request) {
	var resp u2f.SignResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		http.Error(w, "invalid response: "+err.Error(), http.StatusBadRequest)
		return
	}
	if registration == nil {
		http.Error(w, "registration missing", http.StatusBadRequest)
		return
	}

	s, err := sessions.GetSession(demoUser, "sign")
	if err != nil {
		http.Error(w, "sign session not found", http.StatusBadRequest)
		return
	}

	res, err := s.Authenticate(resp)
	if err != nil {
		log.WithError(err).Error("Authenticate failed")
		http.Error(w, "error verifying response", http.StatusInternalServerError)
		return
	}

	// Once a counter has been recorded it must strictly increase; anything
	// else smells like a cloned token. A stored counter of zero means none
	// has been recorded yet, so any value is accepted.
	if res.Counter <= registration.Counter && registration.Counter != 0 {
		log.Warnf("counter did not increase: %d -> %d", registration.Counter, res.Counter)
		http.Error(w, "counter did not increase", http.StatusForbidden)
		return
	}
	registration.Counter = res.Counter

	log.Infof("Authenticated, counter %d", res.Counter)
	w.Write([]byte("success"))
}

const indexHTML = `
<!DOCTYPE html>
<html>
  <head>
    <script type="text/javascript" src="chrome-extension://pfboblefjcgdjicmnffhdgionmgcdmne/u2f-api.js"></script>
  </head>
  <body>
    <h1>FIDO U2F Go Library Demo</h1>

    <ul>
      <li><a href="javascript:register();">Register token</a></li>
      <li><a href="javascript:sign();">Authenticate</a></li>
    </ul>

    <script src="//code.jquery.com/jquery-1.11.2.min.js"></script>
    <script>
      function u2fRegistered(resp) {
        $.post('/registerResponse', JSON.stringify(resp)).done(function() {
          alert('Success');
        });
      }

      function register() {
        $.getJSON('/registerRequest').done(function(req) {
          u2f.register([req], [], u2fRegistered, 100)
        });
      }

      function u2fSigned(resp) {
        $.post('/signResponse', JSON.stringify(resp)).done(function() {
          alert('Success');
        });
      }

      function sign() {
        $.getJSON('/signRequest').done(function(req) {
          u2f.sign([req], u2fSigned, 10);
        });
      }
    </script>

  </body>
</html>
`

func indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(indexHTML))
}

func main() {
	var err error
	sessions, err = u2f.InMemorySessionStorage()
	if err != nil {
		log.Fatal(err)
	}

	http.HandleFunc("/", indexHandler)
	http.HandleFunc("/registerRequest", registerRequest)
	http.HandleFunc("/registerResponse", registerResponse)
	http.HandleFunc("/signRequest", signRequest)
	http.HandleFunc("/signResponse", signResponse)
	log.Fatal(http.ListenAndServe(":3483", nil))
}
