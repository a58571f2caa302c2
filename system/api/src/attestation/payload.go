package attestation

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// Payload is the parsed attestation body together with the hash of the raw
// bytes it came from.
type Payload struct {
	Hash    [sha256.Size]byte
	IsValid bool
	Signed  bool
}

type payloadBody struct {
	IsValid *bool `json:"is_valid"`
}

// IssuerKey verifies JWS wrapped attestations.
type IssuerKey struct {
	Alg jwa.SignatureAlgorithm
	Key jwk.Key
}

func LoadIssuerKey(path, alg string) (*IssuerKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read issuer key: %w", err)
	}
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse issuer key: %w", err)
	}

	var sigAlg jwa.SignatureAlgorithm
	if err := sigAlg.Accept(alg); err != nil {
		return nil, fmt.Errorf("issuer algorithm %q: %w", alg, err)
	}
	return &IssuerKey{Alg: sigAlg, Key: key}, nil
}

// ParsePayload hashes raw before looking at it. When issuer is set the payload
// must be a compact JWS signed by it; otherwise it is plain JSON.
func ParsePayload(raw []byte, issuer *IssuerKey) (Payload, error) {
	p := Payload{Hash: sha256.Sum256(raw)}

	body := bytes.TrimSpace(raw)
	if issuer != nil {
		if !isCompactJWS(body) {
			return p, fmt.Errorf("%w: attestation must be signed by the issuer", ErrInvalidPayload)
		}
		content, err := jws.Verify(body, jws.WithKey(issuer.Alg, issuer.Key))
		if err != nil {
			return p, fmt.Errorf("%w: signature: %v", ErrInvalidPayload, err)
		}
		body = content
		p.Signed = true
	}

	var parsed payloadBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if parsed.IsValid == nil {
		return p, fmt.Errorf("%w: is_valid missing", ErrInvalidPayload)
	}

	p.IsValid = *parsed.IsValid
	return p, nil
}

func isCompactJWS(b []byte) bool {
	return len(b) > 0 && b[0] != '{' && bytes.Count(b, []byte{'.'}) == 2
}
