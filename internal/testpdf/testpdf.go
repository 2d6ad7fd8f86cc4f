// Package testpdf builds minimal PDF documents for tests: a single page with
// one AcroForm text field per requested name, with a correct cross-reference
// table so real parsers accept them.
package testpdf

import (
	"bytes"
	"fmt"
)

// Template returns a one-page PDF carrying a text field for each name.
func Template(fields ...string) []byte {
	return TemplateWithCatalog("", fields...)
}

// TemplateWithCatalog is Template with extra entries spliced into the catalog
// dictionary, e.g. "/Lang (pt-BR)".
func TemplateWithCatalog(extra string, fields ...string) []byte {
	var objects []string

	if extra != "" {
		extra = " " + extra
	}

	field_refs := ""
	for i := range fields {
		if i > 0 {
			field_refs += " "
		}
		field_refs += fmt.Sprintf("%d 0 R", 4+i)
	}

	objects = append(objects,
		fmt.Sprintf("<< /Type /Catalog /Pages 2 0 R%s /AcroForm << /Fields [%s] >> >>", extra, field_refs),
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [%s] >>", field_refs),
	)

	for i, name := range fields {
		y := 700 - 30*i
		objects = append(objects, fmt.Sprintf(
			"<< /FT /Tx /T (%s) /Type /Annot /Subtype /Widget /Rect [50 %d 400 %d] /F 4 /P 3 0 R /Ff 0 >>",
			name, y, y+20))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref_start := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /ID [<b0ba5e1e00000000b0ba5e1e00000000><b0ba5e1e00000000b0ba5e1e00000000>] >>\n", len(objects)+1)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref_start)

	return buf.Bytes()
}
