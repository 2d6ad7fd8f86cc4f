package sign

import (
	"bytes"
	"crypto"
	"testing"
	"time"

	"github.com/digitorus/pdf"

	"github.com/certforge/certbatch/internal/testpdf"
	"github.com/certforge/certbatch/internal/testpki"
)

func TestAddPlaceholder(t *testing.T) {
	pki := testpki.New(t)
	template := testpdf.Template("nomeParticipante")

	data := &SignData{
		Reason:      "Certificate of participation",
		Location:    "São Paulo",
		Date:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Certificate: pki.LeafCert,
		Signer:      pki.LeafKey,
	}
	if err := applyDefaults(data); err != nil {
		t.Fatalf("applyDefaults failed: %v", err)
	}

	output, err := AddPlaceholder(template, data)
	if err != nil {
		t.Fatalf("AddPlaceholder failed: %v", err)
	}

	// The original bytes must be untouched.
	if !bytes.HasPrefix(output, template) {
		t.Error("incremental update modified the original document bytes")
	}

	if n := bytes.Count(output, []byte(signatureByteRangePlaceholder)); n != 1 {
		t.Fatalf("found %d byte range placeholders, want 1", n)
	}
	if !bytes.Contains(output, []byte("/SubFilter /ETSI.CAdES.detached")) {
		t.Error("signature dictionary is missing the CAdES subfilter")
	}
	if !bytes.Contains(output, []byte("/SigFlags 3")) {
		t.Error("catalog is missing the signature flags")
	}

	reader, err := pdf.NewReader(bytes.NewReader(output), int64(len(output)))
	if err != nil {
		t.Fatalf("updated document does not parse: %v", err)
	}

	fields := reader.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	if fields.Len() != 2 {
		t.Fatalf("AcroForm has %d fields, want the template field plus the signature field", fields.Len())
	}

	signature_field := fields.Index(fields.Len() - 1)
	if ft := signature_field.Key("FT").Name(); ft != "Sig" {
		t.Errorf("new field type = %q, want Sig", ft)
	}
	if signature_field.Key("V").IsNull() {
		t.Error("signature field has no value reference")
	}
}

func TestAddPlaceholderKeepsExistingFields(t *testing.T) {
	pki := testpki.New(t)
	template := testpdf.Template("nomeParticipante", "localEData")

	data := &SignData{Certificate: pki.LeafCert, Signer: pki.LeafKey}
	if err := applyDefaults(data); err != nil {
		t.Fatalf("applyDefaults failed: %v", err)
	}

	output, err := AddPlaceholder(template, data)
	if err != nil {
		t.Fatalf("AddPlaceholder failed: %v", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(output), int64(len(output)))
	if err != nil {
		t.Fatalf("updated document does not parse: %v", err)
	}

	fields := reader.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	if fields.Len() != 3 {
		t.Fatalf("AcroForm has %d fields, want 3", fields.Len())
	}

	names := map[string]bool{}
	for i := 0; i < fields.Len(); i++ {
		names[fields.Index(i).Key("T").RawString()] = true
	}
	for _, want := range []string{"nomeParticipante", "localEData", "Signature1"} {
		if !names[want] {
			t.Errorf("field %q missing after update, have %v", want, names)
		}
	}
}

func TestAddPlaceholderKeepsDirectCatalogEntries(t *testing.T) {
	pki := testpki.New(t)
	template := testpdf.TemplateWithCatalog(
		"/Lang (pt-BR) /ViewerPreferences << /DisplayDocTitle true >>",
		"nomeParticipante")

	data := &SignData{Certificate: pki.LeafCert, Signer: pki.LeafKey}
	if err := applyDefaults(data); err != nil {
		t.Fatalf("applyDefaults failed: %v", err)
	}

	output, err := AddPlaceholder(template, data)
	if err != nil {
		t.Fatalf("AddPlaceholder failed: %v", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(output), int64(len(output)))
	if err != nil {
		t.Fatalf("updated document does not parse: %v", err)
	}

	root := reader.Trailer().Key("Root")
	if got := root.Key("Lang").RawString(); got != "pt-BR" {
		t.Errorf("catalog /Lang = %q, want pt-BR", got)
	}
	if !root.Key("ViewerPreferences").Key("DisplayDocTitle").Bool() {
		t.Error("direct /ViewerPreferences lost in the rebuilt catalog")
	}
}

func TestSignatureCapacityCoversCertificate(t *testing.T) {
	pki := testpki.NewWithProfile(t, testpki.RSA_2048)

	capacity, err := signatureCapacity(&SignData{
		Certificate:     pki.LeafCert,
		DigestAlgorithm: crypto.SHA256,
	})
	if err != nil {
		t.Fatalf("signatureCapacity failed: %v", err)
	}

	// Must at least hold the certificate and the signature value in hex.
	minimum := uint32(2 * (len(pki.LeafCert.Raw) + 256))
	if capacity < minimum {
		t.Errorf("capacity %d below minimum %d", capacity, minimum)
	}
}

func TestSignatureCapacityOverride(t *testing.T) {
	capacity, err := signatureCapacity(&SignData{SignatureMaxLength: 4096})
	if err != nil {
		t.Fatalf("signatureCapacity failed: %v", err)
	}
	if capacity != 4096 {
		t.Errorf("capacity = %d, want the override 4096", capacity)
	}
}
