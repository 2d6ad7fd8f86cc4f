// Package prepare validates certificate templates and fills their text
// fields through incremental updates, keeping the template bytes intact.
package prepare

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/digitorus/pdf"

	"github.com/certforge/certbatch/forms"
	"github.com/certforge/certbatch/internal/incwrite"
	"github.com/certforge/certbatch/sign"
)

// Validate checks that the template parses and carries every named field as
// a text field. It runs once before a batch so a broken template fails fast
// instead of on the first participant.
func Validate(template []byte, fields ...string) error {
	reader, err := pdf.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return &sign.TemplateInvalidError{Msg: fmt.Sprintf("template does not parse: %v", err)}
	}

	if reader.Trailer().Key("Root").Key("Pages").IsNull() {
		return &sign.TemplateInvalidError{Msg: "template has no page tree"}
	}

	field_map := fieldMap(reader)
	for _, name := range fields {
		field, ok := field_map[name]
		if !ok {
			return &sign.TemplateInvalidError{Msg: fmt.Sprintf("template has no field %q", name)}
		}
		if ft := field.Key("FT").Name(); ft != "Tx" {
			return &sign.TemplateInvalidError{Msg: fmt.Sprintf("template field %q is %s, want text", name, ft)}
		}
	}

	return nil
}

// Fill writes the given values into the template's text fields as one
// incremental update. Each field is rewritten with the new value, marked
// read-only and given a fresh appearance stream, so the result renders and
// cannot be edited.
func Fill(template []byte, values map[string]string) ([]byte, error) {
	reader, err := pdf.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, &sign.TemplateInvalidError{Msg: fmt.Sprintf("template does not parse: %v", err)}
	}

	updater, err := incwrite.New(template, reader)
	if err != nil {
		return nil, err
	}

	field_map := fieldMap(reader)

	// Deterministic object layout regardless of map iteration order.
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	font_id := uint32(0)
	for _, name := range names {
		field, ok := field_map[name]
		if !ok {
			return nil, &sign.TemplateInvalidError{Msg: fmt.Sprintf("template has no field %q", name)}
		}

		appearance_id := uint32(0)
		if rect, ok := fieldRect(field); ok {
			if font_id == 0 {
				font_id, err = updater.AddObject(helveticaFont())
				if err != nil {
					return nil, err
				}
			}
			appearance_id, err = updater.AddObject(appearanceStream(values[name], rect, font_id))
			if err != nil {
				return nil, err
			}
		}

		body, err := forms.GenerateUpdate(field, values[name], appearance_id)
		if err != nil {
			return nil, &sign.TemplateInvalidError{Msg: fmt.Sprintf("field %q: %v", name, err)}
		}
		if err := updater.UpdateObject(uint32(field.GetPtr().GetID()), body); err != nil {
			return nil, err
		}
	}

	return updater.Finalize()
}

func fieldMap(reader *pdf.Reader) map[string]pdf.Value {
	field_map := make(map[string]pdf.Value)
	fields := reader.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	for i := 0; i < fields.Len(); i++ {
		forms.MapFields(fields.Index(i), "", field_map)
	}
	return field_map
}

type rect struct {
	width  float64
	height float64
}

// fieldRect resolves the widget rectangle of a field, looking at the field
// itself first (merged field and widget) and then at its first kid.
func fieldRect(field pdf.Value) (rect, bool) {
	for _, candidate := range []pdf.Value{field, field.Key("Kids").Index(0)} {
		r := candidate.Key("Rect")
		if r.Kind() != pdf.Array || r.Len() != 4 {
			continue
		}
		width := r.Index(2).Float64() - r.Index(0).Float64()
		if width < 0 {
			width = -width
		}
		height := r.Index(3).Float64() - r.Index(1).Float64()
		if height < 0 {
			height = -height
		}
		if width == 0 || height == 0 {
			continue
		}
		return rect{width: width, height: height}, true
	}
	return rect{}, false
}

func helveticaFont() []byte {
	return []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
}

// appearanceStream builds the /N form XObject rendering the value inside the
// field rectangle. Values are drawn centered vertically with a fixed-ratio
// font size, matching how viewers regenerate simple text appearances.
func appearanceStream(value string, r rect, font_id uint32) []byte {
	font_size := r.height - 4
	if font_size > 12 {
		font_size = 12
	}
	if font_size < 4 {
		font_size = 4
	}
	baseline := (r.height - font_size) / 2

	var content bytes.Buffer
	content.WriteString("/Tx BMC\nq\nBT\n")
	fmt.Fprintf(&content, "/Helv %.2f Tf\n0 g\n", font_size)
	fmt.Fprintf(&content, "2 %.2f Td\n", baseline)
	fmt.Fprintf(&content, "(%s) Tj\n", escapeContent(value))
	content.WriteString("ET\nQ\nEMC")

	var body bytes.Buffer
	body.WriteString("<< /Type /XObject /Subtype /Form")
	fmt.Fprintf(&body, " /BBox [0 0 %.2f %.2f]", r.width, r.height)
	fmt.Fprintf(&body, " /Resources << /Font << /Helv %d 0 R >> >>", font_id)
	fmt.Fprintf(&body, " /Length %d", content.Len())
	body.WriteString(" >>\nstream\n")
	body.Write(content.Bytes())
	body.WriteString("\nendstream")

	return body.Bytes()
}

// escapeContent prepares a value for a content-stream string literal. The
// stream is WinAnsi encoded, so runes outside Latin-1 are replaced; the true
// value lives in the field's /V either way.
func escapeContent(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteByte(byte(r))
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r < 256:
			b.WriteByte(byte(r))
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
