package forms

import (
	"bytes"
	"strings"
	"testing"

	"github.com/digitorus/pdf"

	"github.com/certforge/certbatch/internal/testpdf"
)

func open(t *testing.T, document []byte) *pdf.Reader {
	t.Helper()
	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		t.Fatalf("document does not parse: %v", err)
	}
	return reader
}

func TestExtract(t *testing.T) {
	reader := open(t, testpdf.Template("nomeParticipante", "localEData"))

	fields := Extract(reader)
	if len(fields) != 2 {
		t.Fatalf("extracted %d fields, want 2", len(fields))
	}

	if fields[0].Name != "nomeParticipante" || fields[0].Type != "Tx" {
		t.Errorf("first field = %+v, want text field nomeParticipante", fields[0])
	}
	if fields[0].ReadOnly {
		t.Error("fresh template field is read-only")
	}
}

func TestExtractWithoutForm(t *testing.T) {
	if fields := Extract(nil); fields != nil {
		t.Errorf("nil reader: got %v, want nil", fields)
	}
}

func TestMapFields(t *testing.T) {
	reader := open(t, testpdf.Template("a", "b"))

	m := map[string]pdf.Value{}
	fields := reader.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	for i := 0; i < fields.Len(); i++ {
		MapFields(fields.Index(i), "", m)
	}

	if len(m) != 2 {
		t.Fatalf("mapped %d fields, want 2", len(m))
	}
	for _, name := range []string{"a", "b"} {
		if _, ok := m[name]; !ok {
			t.Errorf("field %q missing from map", name)
		}
	}
}

func TestGenerateUpdate(t *testing.T) {
	reader := open(t, testpdf.Template("nomeParticipante"))

	m := map[string]pdf.Value{}
	fields := reader.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	MapFields(fields.Index(0), "", m)

	body, err := GenerateUpdate(m["nomeParticipante"], "ANA", 7)
	if err != nil {
		t.Fatalf("GenerateUpdate failed: %v", err)
	}

	text := string(body)
	for _, want := range []string{"/V (ANA)", "/Ff 1", "/AP << /N 7 0 R >>", "/FT /Tx"} {
		if !strings.Contains(text, want) {
			t.Errorf("update %q missing %q", text, want)
		}
	}
}

func TestEncodeString(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"ANA", "(ANA)"},
		{"a(b)c", "(a\\(b\\)c)"},
	}
	for _, tc := range cases {
		if got := encodeString(tc.input); got != tc.want {
			t.Errorf("encodeString(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}

	unicode_cases := []struct {
		input string
		want  string
	}{
		{"José", "<FEFF004A006F007300E9>"},
		// The low byte of U+0429 is ')'; a literal string would terminate
		// early on it.
		{"Щ", "<FEFF0429>"},
		{"ЩУКИН", "<FEFF04290423041A0418041D>"},
	}
	for _, tc := range unicode_cases {
		got := encodeString(tc.input)
		if got != tc.want {
			t.Errorf("encodeString(%q) = %q, want %q", tc.input, got, tc.want)
		}
		if strings.ContainsAny(got, "()\\") {
			t.Errorf("encodeString(%q) = %q contains string delimiters", tc.input, got)
		}
	}
}
