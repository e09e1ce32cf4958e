package dkim

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// Key algorithms
const (
	AlgorithmRSA     = "rsa"
	AlgorithmEd25519 = "ed25519"
)

// KeyPair is a generated or loaded DKIM key with its DNS identity
type KeyPair struct {
	PrivateKey crypto.Signer
	Domain     string
	Selector   string
}

// GenerateKey generates a new key. bits only applies to RSA; zero means 2048.
func GenerateKey(algorithm string, bits int, domain, selector string) (*KeyPair, error) {
	var key crypto.Signer

	switch algorithm {
	case AlgorithmRSA, "":
		if bits == 0 {
			bits = 2048
		}
		if bits < 1024 {
			return nil, fmt.Errorf("rsa key size %d is too small", bits)
		}
		k, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RSA key: %w", err)
		}
		key = k
	case AlgorithmEd25519:
		_, k, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Ed25519 key: %w", err)
		}
		key = k
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}

	return &KeyPair{PrivateKey: key, Domain: domain, Selector: selector}, nil
}

// SavePrivateKey writes the key as PKCS#8 PEM with 0600 permissions.
// An existing file is never overwritten.
func (kp *KeyPair) SavePrivateKey(path string) error {
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer file.Close()

	if err := pem.Encode(file, &pem.Block{Type: "PRIVATE KEY", Bytes: der}); err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	return file.Close()
}

// Algorithm returns the k= tag value for the key
func (kp *KeyPair) Algorithm() string {
	if _, ok := kp.PrivateKey.(ed25519.PrivateKey); ok {
		return AlgorithmEd25519
	}
	return AlgorithmRSA
}

// DNSRecord returns the TXT record value to publish
func (kp *KeyPair) DNSRecord() (string, error) {
	var pub []byte

	switch k := kp.PrivateKey.Public().(type) {
	case ed25519.PublicKey:
		pub = k
	case *rsa.PublicKey:
		der, err := x509.MarshalPKIXPublicKey(k)
		if err != nil {
			return "", fmt.Errorf("failed to marshal public key: %w", err)
		}
		pub = der
	default:
		return "", fmt.Errorf("unsupported public key type %T", k)
	}

	return fmt.Sprintf("v=DKIM1; k=%s; p=%s", kp.Algorithm(), base64.StdEncoding.EncodeToString(pub)), nil
}

// DNSName returns the TXT record name
func (kp *KeyPair) DNSName() string {
	return fmt.Sprintf("%s._domainkey.%s", kp.Selector, kp.Domain)
}

// LoadKeyPair loads a key file and attaches the DNS identity
func LoadKeyPair(path, domain, selector string) (*KeyPair, error) {
	key, err := LoadPrivateKey(path)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PrivateKey: key, Domain: domain, Selector: selector}, nil
}

// LoadPrivateKey loads an RSA (PKCS#1 or PKCS#8) or Ed25519 (PKCS#8) key
func LoadPrivateKey(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case ed25519.PrivateKey:
			return k, nil
		default:
			return nil, fmt.Errorf("unsupported private key %T", key)
		}
	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}
