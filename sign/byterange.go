package sign

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// signatureByteRangePlaceholder is the literal token written into the
// signature dictionary before the final offsets are known. The asterisk runs
// reserve ten characters per value so the real offsets can be written in
// place without shifting any byte that follows.
const signatureByteRangePlaceholder = "/ByteRange[0 ********** ********** **********]"

// signatureContentsPlaceholder marks the start of the reserved /Contents hex
// string that follows the byte range in a prepared document.
const signatureContentsPlaceholder = "/Contents <"

// UpdateByteRange locates the ByteRange placeholder token and the reserved
// /Contents hex string that follows it, computes the real byte offsets and
// rewrites the token in place, space-padded to its original length. It
// returns the updated buffer together with the ByteRange descriptor used by
// ExcisePlaceholder and EmbedSignature.
func UpdateByteRange(input []byte) ([]byte, ByteRange, error) {
	var byte_range ByteRange

	placeholder_pos := bytes.Index(input, []byte(signatureByteRangePlaceholder))
	if placeholder_pos < 0 {
		return nil, byte_range, &PlaceholderNotFoundError{
			Msg: "document contains no signature byte range placeholder",
		}
	}

	contents_tag := bytes.Index(input[placeholder_pos:], []byte(signatureContentsPlaceholder))
	if contents_tag < 0 {
		return nil, byte_range, &TemplateInvalidError{
			Msg: "byte range placeholder has no reserved signature contents",
		}
	}
	contents_start := placeholder_pos + contents_tag + len(signatureContentsPlaceholder) - 1

	contents_close := bytes.IndexByte(input[contents_start:], '>')
	if contents_close < 0 {
		return nil, byte_range, &TemplateInvalidError{
			Msg: "reserved signature contents is not terminated",
		}
	}
	contents_end := contents_start + contents_close + 1

	byte_range.Values[0] = 0
	byte_range.Values[1] = int64(contents_start)
	byte_range.Values[2] = int64(contents_end)
	byte_range.Values[3] = int64(len(input) - contents_end)
	byte_range.PlaceholderLength = contents_end - contents_start - 2

	actual := fmt.Sprintf("/ByteRange[%d %d %d %d]",
		byte_range.Values[0],
		byte_range.Values[1],
		byte_range.Values[2],
		byte_range.Values[3])
	if len(actual) > len(signatureByteRangePlaceholder) {
		return nil, byte_range, &TemplateInvalidError{
			Msg: "byte range offsets exceed the reserved placeholder width",
		}
	}
	actual += strings.Repeat(" ", len(signatureByteRangePlaceholder)-len(actual))

	output := make([]byte, len(input))
	copy(output, input)
	copy(output[placeholder_pos:], actual)

	return output, byte_range, nil
}

// ExcisePlaceholder removes the reserved /Contents hex string, including its
// angle brackets, yielding exactly the bytes the detached signature must
// cover.
func ExcisePlaceholder(input []byte, byte_range ByteRange) ([]byte, error) {
	if byte_range.Values[2]+byte_range.Values[3] != int64(len(input)) {
		return nil, &TemplateInvalidError{
			Msg: "byte range does not match the document length",
		}
	}

	output := make([]byte, 0, byte_range.Values[1]+byte_range.Values[3])
	output = append(output, input[:byte_range.Values[1]]...)
	output = append(output, input[byte_range.Values[2]:]...)

	return output, nil
}

// EmbedSignature re-inserts the signature into an excised buffer as a
// hex string padded with trailing zeros to the reserved capacity. The
// trailing zero bytes decode as padding that CMS parsers ignore, so the
// final file length matches the byte range exactly.
func EmbedSignature(excised []byte, byte_range ByteRange, signature []byte) ([]byte, error) {
	if hex.EncodedLen(len(signature)) > byte_range.PlaceholderLength {
		return nil, &SignatureTooLargeError{
			HexLength: hex.EncodedLen(len(signature)),
			Capacity:  byte_range.PlaceholderLength,
		}
	}

	contents := make([]byte, byte_range.PlaceholderLength)
	for i := range contents {
		contents[i] = '0'
	}
	hex.Encode(contents, signature)
	upper := bytes.ToUpper(contents[:hex.EncodedLen(len(signature))])
	copy(contents, upper)

	output := make([]byte, 0, int64(len(excised))+int64(byte_range.PlaceholderLength)+2)
	output = append(output, excised[:byte_range.Values[1]]...)
	output = append(output, '<')
	output = append(output, contents...)
	output = append(output, '>')
	output = append(output, excised[byte_range.Values[1]:]...)

	return output, nil
}
