package dkim

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-msgauth/dkim"
)

const testMessage = "From: \"Jordan Lee\" <jordan@umich.edu>\r\n" +
	"To: <pat@acme.com>\r\n" +
	"Cc: <v1startupfair@umich.edu>\r\n" +
	"Subject: Recruit top talent through V1 Startup Fair @ University of Michigan!\r\n" +
	"Date: Tue, 01 Sep 2026 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=\"utf-8\"\r\n" +
	"\r\n" +
	"<p>Hello Pat,</p>\r\n"

// verify checks a signed message against the key pair's published record
func verify(t *testing.T, kp *KeyPair, signed []byte) {
	t.Helper()

	record, err := kp.DNSRecord()
	if err != nil {
		t.Fatalf("DNSRecord() error = %v", err)
	}

	verifications, err := dkim.VerifyWithOptions(bytes.NewReader(signed), &dkim.VerifyOptions{
		LookupTXT: func(domain string) ([]string, error) {
			if domain != kp.DNSName() {
				t.Errorf("lookup for %s, want %s", domain, kp.DNSName())
			}
			return []string{record}, nil
		},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if len(verifications) != 1 {
		t.Fatalf("got %d verifications, want 1", len(verifications))
	}
	if verifications[0].Err != nil {
		t.Errorf("verification failed: %v", verifications[0].Err)
	}
	if verifications[0].Domain != kp.Domain {
		t.Errorf("verified domain = %s, want %s", verifications[0].Domain, kp.Domain)
	}
}

func TestSignVerifies(t *testing.T) {
	for _, algorithm := range []string{AlgorithmRSA, AlgorithmEd25519} {
		t.Run(algorithm, func(t *testing.T) {
			kp, err := GenerateKey(algorithm, 0, "umich.edu", "outreach")
			if err != nil {
				t.Fatal(err)
			}

			signer := NewSigner(kp.PrivateKey, kp.Domain, kp.Selector)
			signed, err := signer.Sign([]byte(testMessage))
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}

			if !bytes.HasPrefix(signed, []byte("DKIM-Signature:")) {
				t.Error("signed message should start with DKIM-Signature header")
			}
			if !bytes.HasSuffix(signed, []byte(testMessage)) {
				t.Error("original message should be preserved")
			}

			verify(t, kp, signed)
		})
	}
}

func TestSignHeaderKeys(t *testing.T) {
	kp, err := GenerateKey(AlgorithmEd25519, 0, "umich.edu", "outreach")
	if err != nil {
		t.Fatal(err)
	}

	signed, err := NewSigner(kp.PrivateKey, kp.Domain, kp.Selector).Sign([]byte(testMessage))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	header := string(signed[:bytes.Index(signed, []byte("\r\nFrom:"))])
	header = strings.NewReplacer("\r\n", "", "\t", "", " ", "").Replace(header)
	if !strings.Contains(header, "d=umich.edu") || !strings.Contains(header, "s=outreach") {
		t.Errorf("signature missing identity: %s", header)
	}
	if !strings.Contains(strings.ToLower(header), "h=from:to:cc:subject") {
		t.Errorf("signature should cover sender, recipients and subject: %s", header)
	}
}

func TestSignTamperedFails(t *testing.T) {
	kp, err := GenerateKey(AlgorithmEd25519, 0, "umich.edu", "outreach")
	if err != nil {
		t.Fatal(err)
	}

	signed, err := NewSigner(kp.PrivateKey, kp.Domain, kp.Selector).Sign([]byte(testMessage))
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Replace(signed, []byte("Hello Pat"), []byte("Hello Sam"), 1)

	record, _ := kp.DNSRecord()
	verifications, err := dkim.VerifyWithOptions(bytes.NewReader(tampered), &dkim.VerifyOptions{
		LookupTXT: func(string) ([]string, error) { return []string{record}, nil },
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if len(verifications) != 1 || verifications[0].Err == nil {
		t.Error("tampered body should fail verification")
	}
}

func TestNewSignerFromFile(t *testing.T) {
	kp, err := GenerateKey(AlgorithmRSA, 2048, "umich.edu", "outreach")
	if err != nil {
		t.Fatal(err)
	}
	keyPath := filepath.Join(t.TempDir(), "dkim.key")
	if err := kp.SavePrivateKey(keyPath); err != nil {
		t.Fatal(err)
	}

	signer, err := NewSignerFromFile(keyPath, "umich.edu", "outreach")
	if err != nil {
		t.Fatalf("NewSignerFromFile() error = %v", err)
	}
	if signer.Domain() != "umich.edu" || signer.Selector() != "outreach" {
		t.Errorf("signer identity = %s/%s", signer.Domain(), signer.Selector())
	}

	signed, err := signer.Sign([]byte(testMessage))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	verify(t, kp, signed)

	if _, err := NewSignerFromFile(filepath.Join(t.TempDir(), "missing.key"), "umich.edu", "outreach"); err == nil {
		t.Error("expected error for missing key file")
	}
}
