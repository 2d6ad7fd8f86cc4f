package sign

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// buildDocument fabricates a buffer shaped like a prepared document: some
// body text, the byte range placeholder, and a reserved contents region of
// the given hex capacity.
func buildDocument(capacity int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\nsome document body\n")
	buf.WriteString("<< /Type /Sig ")
	buf.WriteString(signatureByteRangePlaceholder)
	buf.WriteString(" /Contents <")
	buf.WriteString(strings.Repeat("0", capacity))
	buf.WriteString("> >>\ntrailer stuff\n%%EOF\n")
	return buf.Bytes()
}

func TestUpdateByteRange(t *testing.T) {
	input := buildDocument(64)

	output, byte_range, err := UpdateByteRange(input)
	if err != nil {
		t.Fatalf("UpdateByteRange failed: %v", err)
	}

	if len(output) != len(input) {
		t.Errorf("buffer length changed: %d != %d", len(output), len(input))
	}
	if bytes.Contains(output, []byte(signatureByteRangePlaceholder)) {
		t.Error("placeholder token still present after rewrite")
	}

	expected := fmt.Sprintf("/ByteRange[%d %d %d %d]",
		byte_range.Values[0], byte_range.Values[1], byte_range.Values[2], byte_range.Values[3])
	if !bytes.Contains(output, []byte(expected)) {
		t.Errorf("rewritten byte range %q not found in output", expected)
	}

	if byte_range.Values[2]+byte_range.Values[3] != int64(len(output)) {
		t.Errorf("byte range does not cover the buffer: %v against length %d",
			byte_range.Values, len(output))
	}
	if byte_range.PlaceholderLength != 64 {
		t.Errorf("placeholder length = %d, want 64", byte_range.PlaceholderLength)
	}
	// The bracketed region is the capacity plus the two angle brackets.
	if byte_range.Values[2]-byte_range.Values[1] != 66 {
		t.Errorf("bracketed region = %d bytes, want 66", byte_range.Values[2]-byte_range.Values[1])
	}
}

func TestUpdateByteRangeWithoutPlaceholder(t *testing.T) {
	var not_found *PlaceholderNotFoundError
	_, _, err := UpdateByteRange([]byte("%PDF-1.7\nno placeholder here\n"))
	if !errors.As(err, &not_found) {
		t.Fatalf("expected PlaceholderNotFoundError, got %v", err)
	}
}

func TestExcisePlaceholder(t *testing.T) {
	input := buildDocument(64)
	output, byte_range, err := UpdateByteRange(input)
	if err != nil {
		t.Fatalf("UpdateByteRange failed: %v", err)
	}

	excised, err := ExcisePlaceholder(output, byte_range)
	if err != nil {
		t.Fatalf("ExcisePlaceholder failed: %v", err)
	}

	if int64(len(excised)) != byte_range.Values[1]+byte_range.Values[3] {
		t.Errorf("excised length = %d, want %d", len(excised), byte_range.Values[1]+byte_range.Values[3])
	}
	if bytes.Contains(excised, []byte("<"+strings.Repeat("0", 64)+">")) {
		t.Error("reserved contents still present after excision")
	}
}

func TestExcisePlaceholderLengthMismatch(t *testing.T) {
	input := buildDocument(64)
	output, byte_range, err := UpdateByteRange(input)
	if err != nil {
		t.Fatalf("UpdateByteRange failed: %v", err)
	}

	var template_invalid *TemplateInvalidError
	_, err = ExcisePlaceholder(append(output, '\n'), byte_range)
	if !errors.As(err, &template_invalid) {
		t.Fatalf("expected TemplateInvalidError, got %v", err)
	}
}

func TestEmbedSignatureBoundary(t *testing.T) {
	// Capacity of 16 hex characters holds exactly 8 raw bytes.
	cases := []struct {
		name     string
		raw_len  int
		want_err bool
	}{
		{"below capacity", 7, false},
		{"at capacity", 8, false},
		{"above capacity", 10, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := buildDocument(16)
			output, byte_range, err := UpdateByteRange(input)
			if err != nil {
				t.Fatalf("UpdateByteRange failed: %v", err)
			}
			excised, err := ExcisePlaceholder(output, byte_range)
			if err != nil {
				t.Fatalf("ExcisePlaceholder failed: %v", err)
			}

			signature := bytes.Repeat([]byte{0xAB}, tc.raw_len)
			final, err := EmbedSignature(excised, byte_range, signature)

			if tc.want_err {
				var too_large *SignatureTooLargeError
				if !errors.As(err, &too_large) {
					t.Fatalf("expected SignatureTooLargeError, got %v", err)
				}
				if too_large.HexLength != 2*tc.raw_len || too_large.Capacity != 16 {
					t.Errorf("error reports %d > %d, want %d > 16", too_large.HexLength, too_large.Capacity, 2*tc.raw_len)
				}
				return
			}

			if err != nil {
				t.Fatalf("EmbedSignature failed: %v", err)
			}
			if len(final) != len(input) {
				t.Errorf("final length = %d, want %d", len(final), len(input))
			}
		})
	}
}

func TestEmbedSignatureIdempotent(t *testing.T) {
	input := buildDocument(64)
	output, byte_range, err := UpdateByteRange(input)
	if err != nil {
		t.Fatalf("UpdateByteRange failed: %v", err)
	}
	excised, err := ExcisePlaceholder(output, byte_range)
	if err != nil {
		t.Fatalf("ExcisePlaceholder failed: %v", err)
	}

	signature := []byte{0x01, 0x02, 0x03, 0x04}
	first, err := EmbedSignature(excised, byte_range, signature)
	if err != nil {
		t.Fatalf("first EmbedSignature failed: %v", err)
	}
	second, err := EmbedSignature(excised, byte_range, signature)
	if err != nil {
		t.Fatalf("second EmbedSignature failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("embedding the same signature twice produced different buffers")
	}
}

func TestEmbedSignaturePadding(t *testing.T) {
	input := buildDocument(16)
	output, byte_range, err := UpdateByteRange(input)
	if err != nil {
		t.Fatalf("UpdateByteRange failed: %v", err)
	}
	excised, err := ExcisePlaceholder(output, byte_range)
	if err != nil {
		t.Fatalf("ExcisePlaceholder failed: %v", err)
	}

	final, err := EmbedSignature(excised, byte_range, []byte{0xAB, 0xCD})
	if err != nil {
		t.Fatalf("EmbedSignature failed: %v", err)
	}

	if !bytes.Contains(final, []byte("<ABCD000000000000>")) {
		t.Error("embedded contents are not zero padded to capacity")
	}
}
