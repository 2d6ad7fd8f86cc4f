// Package forms reads and rewrites AcroForm text fields.
package forms

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/digitorus/pdf"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ffReadOnly is bit 1 of the field flags (table 227 of the PDF spec).
const ffReadOnly = 1

// FormField represents a form field in the document.
type FormField struct {
	Name     string
	Type     string // "Tx", "Btn", "Ch", "Sig"
	Value    string
	ReadOnly bool
}

// Extract returns all form fields found in the PDF.
func Extract(r *pdf.Reader) []FormField {
	if r == nil {
		return nil
	}

	root := r.Trailer().Key("Root")
	acroForm := root.Key("AcroForm")
	if acroForm.IsNull() {
		return nil
	}

	fields := acroForm.Key("Fields")
	if fields.IsNull() || fields.Kind() != pdf.Array {
		return nil
	}

	var result []FormField
	for i := 0; i < fields.Len(); i++ {
		result = append(result, extractFieldsRec(fields.Index(i), "")...)
	}

	return result
}

func extractFieldsRec(v pdf.Value, prefix string) []FormField {
	if v.IsNull() {
		return nil
	}

	name := v.Key("T").RawString()
	if prefix != "" {
		name = prefix + "." + name
	}

	// Leaf fields carry /FT, intermediate nodes only /Kids.
	ft := v.Key("FT").Name()
	if ft != "" {
		val := v.Key("V")
		var strVal string
		if val.Kind() == pdf.String {
			strVal = val.RawString()
		} else if !val.IsNull() {
			strVal = val.String()
		}

		field := FormField{
			Name:     name,
			Type:     ft,
			Value:    strVal,
			ReadOnly: v.Key("Ff").Int64()&ffReadOnly != 0,
		}
		return []FormField{field}
	}

	kids := v.Key("Kids")
	if kids.Kind() == pdf.Array {
		var result []FormField
		for i := 0; i < kids.Len(); i++ {
			result = append(result, extractFieldsRec(kids.Index(i), name)...)
		}
		return result
	}

	return nil
}

// MapFields maps fully qualified field names to their PDF values.
func MapFields(v pdf.Value, prefix string, m map[string]pdf.Value) {
	if v.IsNull() {
		return
	}

	name := v.Key("T").RawString()
	if prefix != "" {
		name = prefix + "." + name
	}

	if v.Key("FT").Name() != "" {
		m[name] = v
	}

	kids := v.Key("Kids")
	if kids.Kind() == pdf.Array {
		for i := 0; i < kids.Len(); i++ {
			MapFields(kids.Index(i), name, m)
		}
	}
}

// GenerateUpdate rebuilds a text field dictionary with the given value and
// the read-only flag set, so the filled value cannot be edited afterwards.
// When appearance is non-zero it becomes the field's /AP /N stream; the stale
// appearance is dropped either way.
func GenerateUpdate(v pdf.Value, value string, appearance uint32) ([]byte, error) {
	ptr := v.GetPtr()
	if ptr.GetID() == 0 {
		return nil, fmt.Errorf("field has no object pointer")
	}

	var buf bytes.Buffer
	buf.WriteString("<<\n")
	for _, key := range v.Keys() {
		switch key {
		case "V", "AP", "Ff":
			continue
		}
		fmt.Fprintf(&buf, "  /%s %s\n", key, v.Key(key).String())
	}

	fmt.Fprintf(&buf, "  /V %s\n", encodeString(value))
	fmt.Fprintf(&buf, "  /Ff %d\n", v.Key("Ff").Int64()|ffReadOnly)
	if appearance != 0 {
		fmt.Fprintf(&buf, "  /AP << /N %d 0 R >>\n", appearance)
	}
	buf.WriteString(">>")

	return buf.Bytes(), nil
}

// encodeString encodes a field value as a PDF string object, switching to
// UTF-16BE for non-ASCII content.
func encodeString(text string) string {
	ascii := true
	for _, r := range text {
		if r > '\u007F' {
			ascii = false
			break
		}
	}

	if !ascii {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err != nil {
			panic(err)
		}
		// Hex string form: a literal string would need every code unit byte
		// that collides with '(', ')' or '\' escaped.
		return "<" + strings.ToUpper(hex.EncodeToString([]byte(res))) + ">"
	}

	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, "\r", "\\r")

	return "(" + text + ")"
}
