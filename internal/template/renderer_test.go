package template

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

const testSubject = "Recruit top talent through V1 Startup Fair @ University of Michigan!"

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"personal.html": &fstest.MapFile{Data: []byte(
			"<p>{{.Greeting}},</p><p>I'm {{.FullName}}, inviting {{.Company}} to the {{.Year}} fair.</p><p>Best, {{.FirstName}}</p>",
		)},
		"business.html": &fstest.MapFile{Data: []byte(
			"<p>{{.Greeting}},</p><p>{{.Company}} partnership for {{.Year}}. {{.FullName}}</p><p>{{.FirstName}}</p>",
		)},
	}
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(testFS(), RendererConfig{
		Kinds: map[string]string{
			"Regular":  "personal.html",
			"Small":    "personal.html",
			"Business": "business.html",
		},
		Subject:        testSubject,
		NoNameSentinel: "NO_NAME",
	})
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		want      string
	}{
		{"sentinel", "NO_NAME", "Hello"},
		{"empty", "", "Hello"},
		{"named", "Alex Smith", "Hello Alex Smith"},
		{"sentinel is case-sensitive", "no_name", "Hello no_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Greeting(tt.recipient, "NO_NAME"); got != tt.want {
				t.Errorf("Greeting(%q) = %q, want %q", tt.recipient, got, tt.want)
			}
		})
	}
}

func TestFirstName(t *testing.T) {
	tests := map[string]string{
		"Jordan Lee":        "Jordan",
		"  Jordan   Lee  ":  "Jordan",
		"Madonna":           "Madonna",
		"":                  "",
		"Mary\tAnn Johnson": "Mary",
	}
	for in, want := range tests {
		if got := FirstName(in); got != want {
			t.Errorf("FirstName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParamsData(t *testing.T) {
	data := Params{
		SenderFullName: "Jordan Lee",
		Year:           "2027",
		Company:        "Acme",
		RecipientName:  "Pat",
	}.Data("NO_NAME")

	want := map[string]string{
		VarGreeting:  "Hello Pat",
		VarFullName:  "Jordan Lee",
		VarYear:      "2027",
		VarCompany:   "Acme",
		VarFirstName: "Jordan",
	}
	for key, value := range want {
		if data[key] != value {
			t.Errorf("Data()[%s] = %v, want %v", key, data[key], value)
		}
	}
}

func TestRendererRegularNoName(t *testing.T) {
	r := testRenderer(t)

	result, err := r.Render("Regular", Params{
		SenderFullName: "Jordan Lee",
		Year:           "2027",
		Company:        "Acme",
		RecipientName:  "NO_NAME",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if result.Subject != testSubject {
		t.Errorf("Subject = %q, want %q", result.Subject, testSubject)
	}
	if !strings.HasPrefix(result.HTML, "<p>Hello,</p>") {
		t.Errorf("HTML greeting should be exactly Hello, got %q", result.HTML)
	}
	if !strings.Contains(result.HTML, "I'm Jordan Lee, inviting Acme to the 2027 fair.") {
		t.Errorf("HTML = %q, missing substitutions", result.HTML)
	}
	if !strings.Contains(result.HTML, "Best, Jordan</p>") {
		t.Errorf("HTML = %q, want first name Jordan", result.HTML)
	}
}

func TestRendererBusinessNamed(t *testing.T) {
	r := testRenderer(t)

	result, err := r.Render("Business", Params{
		SenderFullName: "Jordan Lee",
		Year:           "2027",
		Company:        "Acme",
		RecipientName:  "Alex Smith",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.HasPrefix(result.HTML, "<p>Hello Alex Smith,</p>") {
		t.Errorf("HTML = %q, want greeting Hello Alex Smith", result.HTML)
	}
	if !strings.Contains(result.HTML, "Acme partnership for 2027.") {
		t.Errorf("HTML = %q, want business body", result.HTML)
	}
	if result.Subject != testSubject {
		t.Errorf("Subject = %q, want the shared subject", result.Subject)
	}
}

func TestRendererSmallUsesPersonal(t *testing.T) {
	r := testRenderer(t)
	p := Params{SenderFullName: "Jordan Lee", Year: "2027", Company: "Acme", RecipientName: "Pat"}

	small, err := r.Render("Small", p)
	if err != nil {
		t.Fatalf("Render(Small) error = %v", err)
	}
	regular, err := r.Render("Regular", p)
	if err != nil {
		t.Fatalf("Render(Regular) error = %v", err)
	}
	if small.HTML != regular.HTML {
		t.Error("Small and Regular should render the same template")
	}
}

func TestRendererUnknownKind(t *testing.T) {
	r := testRenderer(t)

	_, err := r.Render("Enterprise", Params{SenderFullName: "Jordan Lee"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Render() error = %v, want ErrUnknownKind", err)
	}
	if r.Has("Enterprise") {
		t.Error("Has(Enterprise) = true")
	}
	if !r.Has("Business") {
		t.Error("Has(Business) = false")
	}
}

func TestRendererKinds(t *testing.T) {
	got := strings.Join(testRenderer(t).Kinds(), ",")
	if got != "Business,Regular,Small" {
		t.Errorf("Kinds() = %s", got)
	}
}

func TestNewRendererMissingFile(t *testing.T) {
	_, err := NewRenderer(testFS(), RendererConfig{
		Kinds:   map[string]string{"Regular": "missing.html"},
		Subject: testSubject,
	})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("NewRenderer() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestNewRendererInvalidSyntax(t *testing.T) {
	fsys := fstest.MapFS{"bad.html": &fstest.MapFile{Data: []byte("<p>{{.Greeting</p>")}}

	_, err := NewRenderer(fsys, RendererConfig{
		Kinds:   map[string]string{"Regular": "bad.html"},
		Subject: testSubject,
	})
	if err == nil {
		t.Error("NewRenderer() expected error for invalid template")
	}
}
