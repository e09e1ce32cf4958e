package template

import (
	"strings"
	"testing"
)

func TestCompileSyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		html    string
		wantErr string
	}{
		{"valid", "Fair {{.Year}}", "<p>{{.Greeting}},</p>", ""},
		{"empty", "", "", ""},
		{"bad subject", "Fair {{.Year", "<p></p>", "invalid subject template"},
		{"bad body", "Fair", "<p>{{.Greeting</p>", "invalid html template"},
		{"unclosed action", "Fair", "{{if .Company}}<p></p>", "invalid html template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(&Template{Kind: "Regular", Subject: tt.subject, HTML: tt.html})
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Compile() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Compile() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCompiledExecute(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		html        string
		data        map[string]any
		wantSubject string
		wantHTML    string
		wantErr     bool
	}{
		{
			name:        "placeholders",
			subject:     "V1 Startup Fair {{.Year}}",
			html:        "<p>{{.Greeting}},</p><p>{{.FirstName}}</p>",
			data:        map[string]any{"Year": "2027", "Greeting": "Hello Pat", "FirstName": "Jordan"},
			wantSubject: "V1 Startup Fair 2027",
			wantHTML:    "<p>Hello Pat,</p><p>Jordan</p>",
		},
		{
			name:    "missing subject value",
			subject: "Fair {{.Year}}",
			html:    "<p></p>",
			data:    map[string]any{},
			wantErr: true,
		},
		{
			name:    "misspelled placeholder",
			subject: "Fair",
			html:    "<p>{{.Greting}}</p>",
			data:    map[string]any{"Greeting": "Hello"},
			wantErr: true,
		},
		{
			name:        "body escaped, subject not",
			subject:     "Recruit at {{.Company}}",
			html:        "<p>{{.Company}} at the {{.Year}} fair</p>",
			data:        map[string]any{"Company": "AT&T", "Year": "2027"},
			wantSubject: "Recruit at AT&T",
			wantHTML:    "<p>AT&amp;T at the 2027 fair</p>",
		},
		{
			name:        "script in company name",
			subject:     "Fair",
			html:        "<p>{{.Company}}</p>",
			data:        map[string]any{"Company": "<script>alert('x')</script>"},
			wantSubject: "Fair",
			wantHTML:    "<p>&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(&Template{Kind: "Regular", Subject: tt.subject, HTML: tt.html})
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}

			result, err := c.Execute(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if result.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", result.Subject, tt.wantSubject)
			}
			if result.HTML != tt.wantHTML {
				t.Errorf("HTML = %q, want %q", result.HTML, tt.wantHTML)
			}
		})
	}
}

func TestCompiledReuse(t *testing.T) {
	c, err := Compile(&Template{Kind: "Business", Subject: "Fair", HTML: "<p>{{.Company}}</p>"})
	if err != nil {
		t.Fatal(err)
	}
	for _, company := range []string{"Acme", "Globex"} {
		result, err := c.Execute(map[string]any{"Company": company})
		if err != nil {
			t.Fatal(err)
		}
		if result.HTML != "<p>"+company+"</p>" {
			t.Errorf("HTML = %q, want %s", result.HTML, company)
		}
	}
}
