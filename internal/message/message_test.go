package message

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAllRecipients(t *testing.T) {
	msg := &Email{
		To: []string{"pat@acme.com"},
		Cc: []string{"v1startupfair@umich.edu"},
	}

	got := msg.AllRecipients()
	want := []string{"pat@acme.com", "v1startupfair@umich.edu"}
	if len(got) != len(want) {
		t.Fatalf("AllRecipients() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllRecipients()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFromHeader(t *testing.T) {
	msg := &Email{From: "jordan@umich.edu", FromName: "Jordan Lee"}
	if got := msg.FromHeader(); got != `"Jordan Lee" <jordan@umich.edu>` {
		t.Errorf("FromHeader() = %s", got)
	}

	bare := &Email{From: "jordan@umich.edu"}
	if got := bare.FromHeader(); got != "<jordan@umich.edu>" {
		t.Errorf("FromHeader() = %s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Email
		wantErr bool
	}{
		{"valid", Email{From: "a@b.com", To: []string{"c@d.com"}, Subject: "Hi"}, false},
		{"no sender", Email{To: []string{"c@d.com"}, Subject: "Hi"}, true},
		{"no recipients", Email{From: "a@b.com", Subject: "Hi"}, true},
		{"no subject", Email{From: "a@b.com", To: []string{"c@d.com"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prospectus.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}

	att, err := LoadAttachment(path, "V1 Startup Fair Prospectus.pdf")
	if err != nil {
		t.Fatalf("LoadAttachment() error = %v", err)
	}
	if att.Filename != "V1 Startup Fair Prospectus.pdf" {
		t.Errorf("Filename = %s", att.Filename)
	}
	if att.ContentType != "application/pdf" {
		t.Errorf("ContentType = %s, want application/pdf", att.ContentType)
	}
	if string(att.Content) != "%PDF-1.4" {
		t.Errorf("Content = %q", att.Content)
	}

	def, err := LoadAttachment(path, "")
	if err != nil {
		t.Fatalf("LoadAttachment() error = %v", err)
	}
	if def.Filename != "prospectus.pdf" {
		t.Errorf("Filename = %s, want base name", def.Filename)
	}
}

func TestLoadAttachmentUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte{0x01}, 0644); err != nil {
		t.Fatal(err)
	}

	att, err := LoadAttachment(path, "")
	if err != nil {
		t.Fatalf("LoadAttachment() error = %v", err)
	}
	if att.ContentType != "application/octet-stream" {
		t.Errorf("ContentType = %s, want application/octet-stream", att.ContentType)
	}
}

func TestLoadAttachmentMissing(t *testing.T) {
	if _, err := LoadAttachment(filepath.Join(t.TempDir(), "nope.pdf"), ""); err == nil {
		t.Error("LoadAttachment() expected error for missing file")
	}
}
