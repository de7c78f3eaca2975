package portals

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/goliatone/go-portal-auth"
)

const (
	pemHeader = "-----BEGIN PUBLIC KEY-----"
	pemFooter = "-----END PUBLIC KEY-----"

	maxKeyBodySize = 64 << 10
)

// VerificationKey is the portal RSA public key split into its components.
// Modulus and Exponent are unsigned big endian byte sequences.
type VerificationKey struct {
	Modulus  []byte
	Exponent []byte
	key      *rsa.PublicKey
}

// PublicKey returns the RSA key rebuilt from Modulus and Exponent.
func (k *VerificationKey) PublicKey() *rsa.PublicKey {
	if k == nil {
		return nil
	}
	return k.key
}

// NewVerificationKey builds a key from its modulus and exponent.
func NewVerificationKey(modulus, exponent []byte) (*VerificationKey, error) {
	if len(modulus) == 0 || len(exponent) == 0 {
		return nil, auth.WithCause(auth.ErrKeyFormat, nil, map[string]any{
			"reason": "empty modulus or exponent",
		})
	}

	e := new(big.Int).SetBytes(exponent)
	if !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, auth.WithCause(auth.ErrKeyFormat, nil, map[string]any{
			"reason": "exponent out of range",
		})
	}

	return &VerificationKey{
		Modulus:  modulus,
		Exponent: exponent,
		key: &rsa.PublicKey{
			N: new(big.Int).SetBytes(modulus),
			E: int(e.Int64()),
		},
	}, nil
}

// ParsePublicKey converts the PEM text served by the portal into a key.
// The delimiters and every line break are stripped before decoding, so the
// body may come in one line or many.
func ParsePublicKey(text string) (*VerificationKey, error) {
	if !strings.Contains(text, pemHeader) || !strings.Contains(text, pemFooter) {
		return nil, auth.WithCause(auth.ErrKeyFormat, nil, map[string]any{
			"reason": "missing PEM delimiters",
		})
	}

	body := strings.NewReplacer(
		pemHeader, "",
		pemFooter, "",
		"\r", "",
		"\n", "",
	).Replace(text)
	body = strings.TrimSpace(body)

	der, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, auth.WithCause(auth.ErrKeyFormat, err, map[string]any{
			"reason": "invalid base64",
		})
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, auth.WithCause(auth.ErrKeyFormat, err, map[string]any{
			"reason": "not a public key",
		})
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, auth.WithCause(auth.ErrKeyFormat, nil, map[string]any{
			"reason": "not an RSA key",
		})
	}

	return NewVerificationKey(
		rsaKey.N.Bytes(),
		big.NewInt(int64(rsaKey.E)).Bytes(),
	)
}

// KeyResolver downloads portal signing keys.
type KeyResolver struct {
	client *http.Client
	logger auth.Logger
}

// NewKeyResolver creates a resolver. A nil client uses http.DefaultClient.
func NewKeyResolver(client *http.Client, logger auth.Logger) *KeyResolver {
	if client == nil {
		client = http.DefaultClient
	}
	_, logger = auth.ResolveLogger("portals.keys", nil, logger)
	return &KeyResolver{client: client, logger: logger}
}

// ResolveKey fetches and parses the signing key of domain. No credentials
// are sent with the request.
func (r *KeyResolver) ResolveKey(ctx context.Context, domain string) (*VerificationKey, error) {
	endpoint := PublicKeyURL(domain)
	meta := map[string]any{"url": endpoint}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, auth.WithCause(auth.ErrKeyFetch, err, meta)
	}

	res, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("signing key request failed", "url", endpoint, "error", err)
		return nil, auth.WithCause(auth.ErrKeyFetch, err, meta)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxKeyBodySize))
	if err != nil {
		return nil, auth.WithCause(auth.ErrKeyFetch, err, meta)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		r.logger.Error("signing key endpoint returned an error", "url", endpoint, "status", res.StatusCode)
		meta["status"] = res.StatusCode
		return nil, auth.WithCause(auth.ErrKeyFetch, nil, meta)
	}

	key, err := ParsePublicKey(string(body))
	if err != nil {
		r.logger.Error("signing key payload is not usable", "url", endpoint, "error", err)
		return nil, err
	}

	r.logger.Debug("signing key resolved", "url", endpoint, "bits", key.PublicKey().N.BitLen())
	return key, nil
}
