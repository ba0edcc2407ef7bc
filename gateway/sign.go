package gateway

import (
	"crypto"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SignType selects the signature scheme used with the gateway.
type SignType string

const (
	SignMD5 SignType = "MD5"
	SignRSA SignType = "RSA"
)

// ErrSignatureInvalid rejects payloads whose signature does not verify.
// Re-exported from the root package as wallet.ErrSignatureInvalid.
var ErrSignatureInvalid = errors.New("wallet: gateway signature invalid")

// canonicalString builds the string both sides sign: every field except
// sign and sign_type, empty values dropped, keys sorted lexicographically,
// joined as k=v pairs with '&'.
func canonicalString(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" || k == "sign_type" {
			continue
		}
		if params.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params.Get(k))
	}
	return b.String()
}

// Signer signs outbound parameters and verifies inbound ones.
type Signer interface {
	Type() SignType
	Sign(params url.Values) (string, error)
	Verify(params url.Values, sign string) error
}

// md5Signer implements the shared-secret MD5 scheme:
// hex(md5(canonical + secret)).
type md5Signer struct {
	secret string
}

// NewMD5Signer returns a Signer using the merchant's shared secret.
func NewMD5Signer(secret string) Signer {
	return &md5Signer{secret: secret}
}

func (s *md5Signer) Type() SignType { return SignMD5 }

func (s *md5Signer) Sign(params url.Values) (string, error) {
	sum := md5.Sum([]byte(canonicalString(params) + s.secret))
	return hex.EncodeToString(sum[:]), nil
}

func (s *md5Signer) Verify(params url.Values, sign string) error {
	want, _ := s.Sign(params)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(sign))) == 1 {
		return nil
	}
	return ErrSignatureInvalid
}

// rsaSigner implements RSA-SHA256 over the canonical string, base64-encoded.
// Outbound signing uses the merchant private key; inbound verification uses
// the gateway's public key.
type rsaSigner struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

// NewRSASigner parses PEM-encoded keys. Either key may be empty when only
// one direction is needed (sign-only or verify-only).
func NewRSASigner(privatePEM, publicPEM string) (Signer, error) {
	s := &rsaSigner{}
	if privatePEM != "" {
		priv, err := parsePrivateKey(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("gateway: private key: %w", err)
		}
		s.priv = priv
	}
	if publicPEM != "" {
		pub, err := parsePublicKey(publicPEM)
		if err != nil {
			return nil, fmt.Errorf("gateway: public key: %w", err)
		}
		s.pub = pub
	}
	return s, nil
}

// newRSASignerFromKeys wires raw keys directly; used by tests.
func newRSASignerFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey) Signer {
	return &rsaSigner{priv: priv, pub: pub}
}

func (s *rsaSigner) Type() SignType { return SignRSA }

func (s *rsaSigner) Sign(params url.Values) (string, error) {
	if s.priv == nil {
		return "", errors.New("gateway: no private key configured")
	}
	digest := sha256.Sum256([]byte(canonicalString(params)))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("gateway: rsa sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (s *rsaSigner) Verify(params url.Values, sign string) error {
	if s.pub == nil {
		return errors.New("gateway: no public key configured")
	}
	sig, err := base64.StdEncoding.DecodeString(sign)
	if err != nil {
		return ErrSignatureInvalid
	}
	digest := sha256.Sum256([]byte(canonicalString(params)))
	if rsa.VerifyPKCS1v15(s.pub, crypto.SHA256, digest[:], sig) != nil {
		return ErrSignatureInvalid
	}
	return nil
}

func parsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return key, nil
}

func parsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return key, nil
}
