// FIDO U2F Go Library
// Copyright 2015 The FIDO U2F Go Library Authors. All rights reserved.

package u2f

// ClientData is the JSON document assembled by the browser and echoed back
// inside every response. Only the challenge and origin matter to the
// server; the rest is carried for completeness.
type ClientData struct {
	Typ       string      `json:"typ"`
	Challenge string      `json:"challenge"`
	Origin    string      `json:"origin"`
	CIDPubKey interface{} `json:"cid_pubkey"`
}

// RegisterRequest is the registration challenge sent to the browser.
type RegisterRequest struct {
	Challenge string `json:"challenge"`
	Version   string `json:"version"`
	AppID     string `json:"appId"`
}

// RegisterResponse is the browser's answer to a RegisterRequest.
type RegisterResponse struct {
	RegistrationData string `json:"registrationData"`
	ClientData       string `json:"clientData"`
}

// SignRequest is the authentication challenge sent to the browser.
type SignRequest struct {
	KeyHandle string `json:"keyHandle"`
	Version   string `json:"version"`
	Challenge string `json:"challenge"`
	AppID     string `json:"appId"`
}

// SignResponse is the browser's answer to a SignRequest.
type SignResponse struct {
	KeyHandle     string `json:"keyHandle"`
	SignatureData string `json:"signatureData"`
	ClientData    string `json:"clientData"`
}

// RegisteredKey describes an already enrolled token in the JS API v1.1
// envelope messages.
type RegisteredKey struct {
	Version   string `json:"version"`
	KeyHandle string `json:"keyHandle"`
	AppID     string `json:"appId,omitempty"`
}

// RegisterRequestMessage is the u2f.register() envelope handed to the
// browser API: the new-enrolment challenges plus the keys already
// registered, so the token can refuse double enrolment.
type RegisterRequestMessage struct {
	AppID            string            `json:"appId"`
	RegisterRequests []RegisterRequest `json:"registerRequests"`
	RegisteredKeys   []RegisteredKey   `json:"registeredKeys"`
}

// SignRequestMessage is the u2f.sign() envelope handed to the browser API.
type SignRequestMessage struct {
	AppID          string          `json:"appId"`
	Challenge      string          `json:"challenge"`
	RegisteredKeys []RegisteredKey `json:"registeredKeys"`
}

// TrustedFacets is one version block of the AppID facet list document.
type TrustedFacets struct {
	Version struct {
		Major int `json:"major"`
		Minor int `json:"minor"`
	} `json:"version"`
	Ids []string `json:"ids"`
}

// TrustedFacetsEndpoint is the document served from the AppID URL.
type TrustedFacetsEndpoint struct {
	TrustedFacets []TrustedFacets `json:"trustedFacets"`
}
