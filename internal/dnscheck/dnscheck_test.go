package dnscheck

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/foxzi/outreach/internal/dkim"
)

type fakeResolver struct {
	records map[string][]string
	err     error
}

func (r *fakeResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	records, ok := r.records[name]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return records, nil
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantErr bool
	}{
		{"valid simple", "example.com", false},
		{"valid subdomain", "sub.example.com", false},
		{"valid with dash", "my-domain.com", false},
		{"empty", "", true},
		{"too long", string(make([]byte, 254)), true},
		{"invalid chars", "example!.com", true},
		{"starts with dash", "-example.com", true},
		{"double dot", "example..com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDomain(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSelector(t *testing.T) {
	for _, s := range []string{"outreach", "key2026", "dkim-key"} {
		if err := ValidateSelector(s); err != nil {
			t.Errorf("ValidateSelector(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"", "selector!", "-selector", string(make([]byte, 64))} {
		if err := ValidateSelector(s); err == nil {
			t.Errorf("ValidateSelector(%q) expected error", s)
		}
	}
}

func TestCheckSPF(t *testing.T) {
	tests := []struct {
		name    string
		records []string
		want    string
	}{
		{"strict", []string{"v=spf1 include:_spf.google.com -all"}, StatusOK},
		{"soft fail", []string{"google-site-verification=abc", "v=spf1 include:_spf.google.com ~all"}, StatusOK},
		{"plus all", []string{"v=spf1 +all"}, StatusWarning},
		{"no all", []string{"v=spf1 include:_spf.google.com"}, StatusWarning},
		{"multiple", []string{"v=spf1 -all", "v=spf1 ~all"}, StatusError},
		{"unrelated txt", []string{"hello"}, StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(&fakeResolver{records: map[string][]string{"umich.edu": tt.records}})
			if got := c.CheckSPF(context.Background(), "umich.edu"); got.Status != tt.want {
				t.Errorf("CheckSPF() status = %s, want %s (%s)", got.Status, tt.want, got.Message)
			}
		})
	}

	c := NewChecker(&fakeResolver{})
	if got := c.CheckSPF(context.Background(), "umich.edu"); got.Status != StatusNotFound {
		t.Errorf("CheckSPF() status = %s, want not_found for missing name", got.Status)
	}
}

func TestCheckDMARC(t *testing.T) {
	tests := []struct {
		record string
		want   string
	}{
		{"v=DMARC1; p=reject; rua=mailto:d@umich.edu", StatusOK},
		{"v=DMARC1; p=quarantine", StatusOK},
		{"v=DMARC1; p=none", StatusWarning},
		{"v=DMARC1", StatusWarning},
		{"something else", StatusWarning},
	}

	for _, tt := range tests {
		c := NewChecker(&fakeResolver{records: map[string][]string{"_dmarc.umich.edu": {tt.record}}})
		if got := c.CheckDMARC(context.Background(), "umich.edu"); got.Status != tt.want {
			t.Errorf("CheckDMARC(%q) status = %s, want %s", tt.record, got.Status, tt.want)
		}
	}
}

func TestCheckDKIM(t *testing.T) {
	kp, err := dkim.GenerateKey(dkim.AlgorithmRSA, 1024, "umich.edu", "outreach")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	local, err := kp.DNSRecord()
	if err != nil {
		t.Fatalf("DNSRecord() error = %v", err)
	}
	other, _ := dkim.GenerateKey(dkim.AlgorithmEd25519, 0, "umich.edu", "outreach")
	otherRecord, _ := other.DNSRecord()

	// Published records are often split into 255 byte strings
	split := []string{local[:60], local[60:]}

	tests := []struct {
		name     string
		records  []string
		expected string
		want     string
	}{
		{"published", []string{local}, "", StatusOK},
		{"split matches local key", split, local, StatusOK},
		{"different key", []string{otherRecord}, local, StatusError},
		{"revoked", []string{"v=DKIM1; k=rsa; p="}, "", StatusError},
		{"not dkim", []string{"v=spf1 -all"}, "", StatusWarning},
		{"missing", nil, "", StatusNotFound},
		{"missing with local key", nil, local, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := map[string][]string{}
			if tt.records != nil {
				records["outreach._domainkey.umich.edu"] = tt.records
			}
			c := NewChecker(&fakeResolver{records: records})
			got := c.CheckDKIM(context.Background(), "umich.edu", "outreach", tt.expected)
			if got.Status != tt.want {
				t.Errorf("CheckDKIM() status = %s, want %s (%s)", got.Status, tt.want, got.Message)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	c := NewChecker(&fakeResolver{records: map[string][]string{
		"umich.edu":                     {"v=spf1 -all"},
		"_dmarc.umich.edu":              {"v=DMARC1; p=reject"},
		"outreach._domainkey.umich.edu": {"v=DKIM1; k=rsa; p=abc"},
	}})

	report, err := c.Check(context.Background(), "umich.edu", Options{Selector: "outreach"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(report.Results) != 3 {
		t.Fatalf("Check() returned %d results, want 3", len(report.Results))
	}
	if !report.OK() {
		t.Errorf("Report.OK() = false, results = %+v", report.Results)
	}

	report, err = c.Check(context.Background(), "umich.edu", Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(report.Results) != 2 {
		t.Errorf("Check() without selector returned %d results, want 2", len(report.Results))
	}

	if _, err := c.Check(context.Background(), "bad domain", Options{}); !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("Check() error = %v, want ErrInvalidDomain", err)
	}
	if _, err := c.Check(context.Background(), "umich.edu", Options{Selector: "bad!"}); !errors.Is(err, ErrInvalidSelector) {
		t.Errorf("Check() error = %v, want ErrInvalidSelector", err)
	}
}

func TestCheckLookupFailure(t *testing.T) {
	c := NewChecker(&fakeResolver{err: errors.New("server misbehaving")})

	report, err := c.Check(context.Background(), "umich.edu", Options{Selector: "outreach"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	for _, r := range report.Results {
		if r.Status != StatusError {
			t.Errorf("%s status = %s, want error", r.Type, r.Status)
		}
	}
	if report.OK() {
		t.Error("Report.OK() = true, want false on lookup failures")
	}
}
