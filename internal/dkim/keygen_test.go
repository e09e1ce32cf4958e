package dkim

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		bits      int
		wantAlg   string
		wantBits  int
		wantErr   bool
	}{
		{"default rsa", "", 0, AlgorithmRSA, 2048, false},
		{"rsa 1024", AlgorithmRSA, 1024, AlgorithmRSA, 1024, false},
		{"ed25519", AlgorithmEd25519, 0, AlgorithmEd25519, 0, false},
		{"rsa too small", AlgorithmRSA, 512, "", 0, true},
		{"unknown", "dsa", 0, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp, err := GenerateKey(tt.algorithm, tt.bits, "umich.edu", "outreach")
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if kp.Algorithm() != tt.wantAlg {
				t.Errorf("Algorithm() = %s, want %s", kp.Algorithm(), tt.wantAlg)
			}
			if rsaKey, ok := kp.PrivateKey.(*rsa.PrivateKey); ok && rsaKey.N.BitLen() != tt.wantBits {
				t.Errorf("key size = %d, want %d", rsaKey.N.BitLen(), tt.wantBits)
			}
		})
	}
}

func TestDNSName(t *testing.T) {
	kp := &KeyPair{Domain: "umich.edu", Selector: "mail"}
	if got := kp.DNSName(); got != "mail._domainkey.umich.edu" {
		t.Errorf("DNSName() = %q", got)
	}
}

func TestDNSRecord(t *testing.T) {
	rsaKP, err := GenerateKey(AlgorithmRSA, 1024, "umich.edu", "outreach")
	if err != nil {
		t.Fatal(err)
	}
	record, err := rsaKP.DNSRecord()
	if err != nil {
		t.Fatalf("DNSRecord() error = %v", err)
	}
	if !strings.HasPrefix(record, "v=DKIM1; k=rsa; p=") {
		t.Errorf("DNSRecord() = %q", record)
	}

	edKP, err := GenerateKey(AlgorithmEd25519, 0, "umich.edu", "outreach")
	if err != nil {
		t.Fatal(err)
	}
	record, err = edKP.DNSRecord()
	if err != nil {
		t.Fatalf("DNSRecord() error = %v", err)
	}
	// 32 byte key is 44 base64 chars
	if !strings.HasPrefix(record, "v=DKIM1; k=ed25519; p=") || len(strings.TrimPrefix(record, "v=DKIM1; k=ed25519; p=")) != 44 {
		t.Errorf("DNSRecord() = %q", record)
	}
}

func TestSavePrivateKey(t *testing.T) {
	kp, err := GenerateKey(AlgorithmEd25519, 0, "umich.edu", "outreach")
	if err != nil {
		t.Fatal(err)
	}

	keyPath := filepath.Join(t.TempDir(), "keys", "dkim.key")
	if err := kp.SavePrivateKey(keyPath); err != nil {
		t.Fatalf("SavePrivateKey() error = %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("key file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadKeyPair(keyPath, "umich.edu", "outreach")
	if err != nil {
		t.Fatalf("LoadKeyPair() error = %v", err)
	}
	if !kp.PrivateKey.(ed25519.PrivateKey).Equal(loaded.PrivateKey) {
		t.Error("loaded key does not match")
	}

	if err := kp.SavePrivateKey(keyPath); err == nil {
		t.Error("SavePrivateKey() should refuse to overwrite an existing key")
	}
}

func TestLoadPrivateKey(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadPrivateKey(filepath.Join(dir, "missing.pem")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid PEM", func(t *testing.T) {
		path := filepath.Join(dir, "bad.pem")
		if err := os.WriteFile(path, []byte("not a pem"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPrivateKey(path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unsupported block", func(t *testing.T) {
		path := filepath.Join(dir, "cert.pem")
		data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0}})
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPrivateKey(path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("PKCS1 RSA", func(t *testing.T) {
		kp, err := GenerateKey(AlgorithmRSA, 1024, "umich.edu", "outreach")
		if err != nil {
			t.Fatal(err)
		}
		rsaKey := kp.PrivateKey.(*rsa.PrivateKey)

		path := filepath.Join(dir, "pkcs1.pem")
		data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)})
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatal(err)
		}

		loaded, err := LoadPrivateKey(path)
		if err != nil {
			t.Fatalf("LoadPrivateKey() error = %v", err)
		}
		if !rsaKey.Equal(loaded) {
			t.Error("loaded key does not match")
		}
	})
}
