package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrAuthNotConfigured indica que faltan credenciales para un endpoint
// autenticado. El cliente falla cerrado: nunca manda la request sin firma.
var ErrAuthNotConfigured = errors.New("kalshi: auth not configured (set KALSHI_KEY_ID and KALSHI_PRIVATE_KEY_PATH)")

// Credentials holds the API key id and the RSA private key used to sign
// requests with RSA-PSS.
type Credentials struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey

	// now es inyectable para tests de firma determinista.
	now func() time.Time
}

// LoadCredentials reads the private key from disk and returns signing
// credentials. Returns ErrAuthNotConfigured when either the key id or the
// key path is empty, so callers can run in public-data mode.
func LoadCredentials(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" || privateKeyPath == "" {
		return nil, ErrAuthNotConfigured
	}
	key, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("kalshi.LoadCredentials: %w", err)
	}
	return &Credentials{KeyID: keyID, PrivateKey: key, now: time.Now}, nil
}

// LoadPrivateKey parses an RSA private key from a PEM file. Accepts PKCS#8
// and falls back to PKCS#1.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key in %s is not RSA", path)
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return rsaKey, nil
}

// Sign adds the KALSHI-ACCESS-* headers to the request. The signed message
// is timestampMillis + METHOD + path, with any query string stripped.
func (c *Credentials) Sign(req *http.Request) error {
	nowFn := c.now
	if nowFn == nil {
		nowFn = time.Now
	}
	timestampMs := nowFn().UnixMilli()

	path, _, _ := strings.Cut(req.URL.RequestURI(), "?")
	signature, err := c.signature(timestampMs, req.Method, path)
	if err != nil {
		return err
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.KeyID)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", fmt.Sprintf("%d", timestampMs))
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", signature)
	return nil
}

// signature firma timestamp+method+path con RSA-PSS, salt igual al hash,
// y devuelve base64 estándar.
func (c *Credentials) signature(timestampMs int64, method, path string) (string, error) {
	message := fmt.Sprintf("%d%s%s", timestampMs, method, path)
	hashed := sha256.Sum256([]byte(message))

	sig, err := rsa.SignPSS(
		rand.Reader,
		c.PrivateKey,
		crypto.SHA256,
		hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
