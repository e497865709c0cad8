// U2F token implementation for integration testing

package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/gravitational/trace"
)

// VirtualKey is a software U2F token. It answers register and sign
// envelopes the way a hardware key behind the browser API would, which
// makes full round trips testable without a device.
type VirtualKey struct {
	attestationKey       *ecdsa.PrivateKey
	attestationCertBytes []byte
	keys                 []keyInst
}

// Key instance bound to an AppID and key handle.
type keyInst struct {
	appID     string
	keyHandle string
	private   *ecdsa.PrivateKey
	counter   uint32
}

// NewVirtualKey creates a token with a fresh self signed attestation
// certificate. Verify registrations against it with
// RegistrationConfig.SkipAttestationVerify.
func NewVirtualKey() (*VirtualKey, error) {
	attestationKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	certBytes, err := generateAttestationCert(attestationKey)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &VirtualKey{
		attestationKey:       attestationKey,
		attestationCertBytes: certBytes,
	}, nil
}

func generateAttestationCert(privateKey *ecdsa.PrivateKey) ([]byte, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	template := x509.Certificate{
		SerialNumber:       serialNumber,
		Subject:            pkix.Name{CommonName: "Virtual U2F Token"},
		KeyUsage:           x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		NotBefore:          time.Now(),
		NotAfter:           time.Now().Add(365 * 24 * time.Hour),
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return der, nil
}

func (vk *VirtualKey) findKey(appID, keyHandle string) *keyInst {
	for i := range vk.keys {
		if vk.keys[i].appID == appID && vk.keys[i].keyHandle == keyHandle {
			return &vk.keys[i]
		}
	}
	return nil
}

func signECDSA(privateKey *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, privateKey, digest[:])
	if err != nil {
		return nil, trace.Wrap(err)
	}
	sig, err := asn1.Marshal(ecdsaSig{R: r, S: s})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return sig, nil
}

// HandleRegisterRequest enrols a new key for the request's AppID and
// returns the response a browser would deliver.
func (vk *VirtualKey) HandleRegisterRequest(req RegisterRequestMessage) (*RegisterResponse, error) {
	if len(req.RegisterRequests) == 0 {
		return nil, trace.BadParameter("no register requests in message")
	}
	for _, k := range req.RegisteredKeys {
		kh, err := decodeBase64(k.KeyHandle)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if vk.findKey(req.AppID, string(kh)) != nil {
			return nil, trace.AlreadyExists("key already registered for %s", req.AppID)
		}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	publicKey := elliptic.Marshal(elliptic.P256(), privateKey.PublicKey.X, privateKey.PublicKey.Y)
	keyHandle := fmt.Sprintf("virtualkey-%d", len(vk.keys))

	cd := ClientData{
		Typ:       "navigator.id.finishEnrollment",
		Challenge: req.RegisterRequests[0].Challenge,
		Origin:    req.AppID,
	}
	cdJSON, err := json.Marshal(cd)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	appParam := sha256.Sum256([]byte(req.AppID))
	challenge := sha256.Sum256(cdJSON)

	signed := []byte{0}
	signed = append(signed, appParam[:]...)
	signed = append(signed, challenge[:]...)
	signed = append(signed, keyHandle...)
	signed = append(signed, publicKey...)
	sig, err := signECDSA(vk.attestationKey, signed)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	var buf []byte
	buf = append(buf, 0x05)
	buf = append(buf, publicKey...)
	buf = append(buf, byte(len(keyHandle)))
	buf = append(buf, keyHandle...)
	buf = append(buf, vk.attestationCertBytes...)
	buf = append(buf, sig...)

	vk.keys = append(vk.keys, keyInst{
		appID:     req.AppID,
		keyHandle: keyHandle,
		private:   privateKey,
	})

	return &RegisterResponse{
		RegistrationData: encodeBase64(buf),
		ClientData:       encodeBase64(cdJSON),
	}, nil
}

// HandleSignRequest answers an authentication envelope with a signed
// assertion, incrementing the key's usage counter.
func (vk *VirtualKey) HandleSignRequest(req SignRequestMessage) (*SignResponse, error) {
	var key *keyInst
	for _, k := range req.RegisteredKeys {
		kh, err := decodeBase64(k.KeyHandle)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if ki := vk.findKey(req.AppID, string(kh)); ki != nil {
			key = ki
			break
		}
	}
	if key == nil {
		return nil, trace.NotFound("no key registered for %s", req.AppID)
	}

	key.counter++

	cd := ClientData{
		Typ:       "navigator.id.getAssertion",
		Challenge: req.Challenge,
		Origin:    req.AppID,
	}
	cdJSON, err := json.Marshal(cd)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	sigData := []byte{0x01}
	counterBytes := make([]byte, counterLen)
	binary.BigEndian.PutUint32(counterBytes, key.counter)
	sigData = append(sigData, counterBytes...)

	appParam := sha256.Sum256([]byte(req.AppID))
	challenge := sha256.Sum256(cdJSON)

	var signed []byte
	signed = append(signed, appParam[:]...)
	signed = append(signed, sigData...)
	signed = append(signed, challenge[:]...)
	sig, err := signECDSA(key.private, signed)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	sigData = append(sigData, sig...)

	return &SignResponse{
		KeyHandle:     encodeBase64([]byte(key.keyHandle)),
		SignatureData: encodeBase64(sigData),
		ClientData:    encodeBase64(cdJSON),
	}, nil
}
