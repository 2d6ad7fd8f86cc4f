package incwrite

import (
	"bytes"
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

func TestAddObject(t *testing.T) {
	document := testpdf.Template("field")
	reader := open(t, document)

	updater, err := New(document, reader)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want_id := updater.NextObjectID()
	id, err := updater.AddObject([]byte("<< /Type /Test >>"))
	if err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}
	if id != want_id {
		t.Errorf("object id = %d, want %d", id, want_id)
	}

	output, err := updater.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if !bytes.HasPrefix(output, document) {
		t.Error("update modified the original bytes")
	}

	updated := open(t, output)
	if got, want := updated.XrefInformation.ItemCount, reader.XrefInformation.ItemCount+1; got != want {
		t.Errorf("xref item count = %d, want %d", got, want)
	}
}

func TestUpdateObjectReplacesValue(t *testing.T) {
	document := testpdf.Template("field")
	reader := open(t, document)

	updater, err := New(document, reader)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Object 4 is the template's field dictionary.
	body := []byte("<< /FT /Tx /T (field) /Type /Annot /Subtype /Widget /Rect [50 700 400 720] /F 4 /P 3 0 R /Ff 1 /V (changed) >>")
	if err := updater.UpdateObject(4, body); err != nil {
		t.Fatalf("UpdateObject failed: %v", err)
	}

	output, err := updater.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	updated := open(t, output)
	field := updated.Trailer().Key("Root").Key("AcroForm").Key("Fields").Index(0)
	if got := field.Key("V").RawString(); got != "changed" {
		t.Errorf("field value = %q, want %q", got, "changed")
	}
	if got := field.Key("Ff").Int64(); got != 1 {
		t.Errorf("field flags = %d, want 1", got)
	}
}

func TestUpdateObjectRejectsUnknownID(t *testing.T) {
	document := testpdf.Template("field")
	updater, err := New(document, open(t, document))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := updater.UpdateObject(99, []byte("<< >>")); err == nil {
		t.Error("expected an error for an object the source does not contain")
	}
}

func TestSetRootSwitchesCatalog(t *testing.T) {
	document := testpdf.Template("field")
	reader := open(t, document)

	updater, err := New(document, reader)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	catalog_id, err := updater.AddObject([]byte("<< /Type /Catalog /Pages 2 0 R >>"))
	if err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}
	updater.SetRoot(catalog_id)

	output, err := updater.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	updated := open(t, output)
	root_ptr := updated.Trailer().Key("Root").GetPtr()
	if uint32(root_ptr.GetID()) != catalog_id {
		t.Errorf("trailer root = object %d, want %d", root_ptr.GetID(), catalog_id)
	}
	// The new catalog has no AcroForm.
	if !updated.Trailer().Key("Root").Key("AcroForm").IsNull() {
		t.Error("old catalog still reachable through the trailer")
	}
}
