package sign

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/digitorus/pdf"
	"github.com/digitorus/pkcs7"

	"github.com/certforge/certbatch/internal/incwrite"
)

// signatureCapacity estimates the /Contents hex capacity needed for the final
// CMS envelope: the DER scaffolding, the signature value, two digests (one
// for the content, one inside the signing certificate attribute), the
// degenerate signer certificate, the raw issuer carried by the signer info,
// and room for an RFC 3161 token when a TSA is configured.
func signatureCapacity(data *SignData) (uint32, error) {
	if data.SignatureMaxLength > 0 {
		return data.SignatureMaxLength, nil
	}

	capacity := uint32(hex.EncodedLen(512))

	sig_size, err := PublicKeySignatureSize(data.Certificate.PublicKey)
	if err != nil {
		sig_size = DefaultSignatureSize
	}
	capacity += uint32(hex.EncodedLen(sig_size))

	capacity += uint32(hex.EncodedLen(data.DigestAlgorithm.Size() * 2))

	degenerated, err := pkcs7.DegenerateCertificate(data.Certificate.Raw)
	if err != nil {
		return 0, fmt.Errorf("failed to degenerate certificate: %w", err)
	}
	capacity += uint32(hex.EncodedLen(len(degenerated)))

	capacity += uint32(hex.EncodedLen(len(data.Certificate.RawIssuer)))

	if data.TSA.URL != "" {
		capacity += uint32(hex.EncodedLen(9000))
	}

	return capacity, nil
}

// AddPlaceholder appends an incremental update holding the signature
// dictionary, its invisible widget annotation and an updated catalog whose
// AcroForm references the new field. The dictionary's /ByteRange and
// /Contents values are placeholders for UpdateByteRange and EmbedSignature
// to fill in.
func AddPlaceholder(input []byte, data *SignData) ([]byte, error) {
	reader, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return nil, &TemplateInvalidError{Msg: fmt.Sprintf("failed to parse document: %v", err)}
	}

	updater, err := incwrite.New(input, reader)
	if err != nil {
		return nil, &PlaceholderInsertionError{Msg: "failed to prepare incremental update", Err: err}
	}

	capacity, err := signatureCapacity(data)
	if err != nil {
		return nil, &PlaceholderInsertionError{Msg: "failed to size signature placeholder", Err: err}
	}

	signature_id, err := updater.AddObject(signatureDictionary(data, capacity))
	if err != nil {
		return nil, &PlaceholderInsertionError{Msg: "failed to write signature dictionary", Err: err}
	}

	field, err := signatureField(reader, signature_id)
	if err != nil {
		return nil, err
	}
	field_id, err := updater.AddObject(field)
	if err != nil {
		return nil, &PlaceholderInsertionError{Msg: "failed to write signature field", Err: err}
	}

	catalog, err := catalogWithForm(reader, field_id)
	if err != nil {
		return nil, err
	}
	catalog_id, err := updater.AddObject(catalog)
	if err != nil {
		return nil, &PlaceholderInsertionError{Msg: "failed to write catalog", Err: err}
	}
	updater.SetRoot(catalog_id)

	output, err := updater.Finalize()
	if err != nil {
		return nil, &PlaceholderInsertionError{Msg: "failed to finalize incremental update", Err: err}
	}

	return output, nil
}

func signatureDictionary(data *SignData, capacity uint32) []byte {
	var signature_buffer bytes.Buffer
	signature_buffer.WriteString("<< /Type /Sig")
	signature_buffer.WriteString(" /Filter /Adobe.PPKLite")
	signature_buffer.WriteString(" /SubFilter /ETSI.CAdES.detached")
	signature_buffer.WriteString(" " + signatureByteRangePlaceholder)
	signature_buffer.WriteString(" /Contents <")
	signature_buffer.Write(bytes.Repeat([]byte("0"), int(capacity)))
	signature_buffer.WriteString(">")

	if data.Location != "" {
		signature_buffer.WriteString(" /Location ")
		signature_buffer.WriteString(pdfString(data.Location))
	}
	if data.Reason != "" {
		signature_buffer.WriteString(" /Reason ")
		signature_buffer.WriteString(pdfString(data.Reason))
	}
	if data.ContactInfo != "" {
		signature_buffer.WriteString(" /ContactInfo ")
		signature_buffer.WriteString(pdfString(data.ContactInfo))
	}

	signature_buffer.WriteString(" /M ")
	signature_buffer.WriteString(pdfDateTime(data.Date))
	signature_buffer.WriteString(" >>")

	return signature_buffer.Bytes()
}

// signatureField builds the invisible widget annotation that binds the
// signature dictionary into the interactive form. /F 132 marks the
// annotation hidden and locked; /Rect [0 0 0 0] keeps it off the page.
func signatureField(reader *pdf.Reader, signature_id uint32) ([]byte, error) {
	root := reader.Trailer().Key("Root")

	first_page, err := findFirstPage(root.Key("Pages"))
	if err != nil {
		return nil, &TemplateInvalidError{Msg: "document has no pages"}
	}
	page := first_page.GetPtr()

	field_name := "Signature" + strconv.Itoa(existingSignatureCount(root)+1)

	var field_buffer bytes.Buffer
	field_buffer.WriteString("<< /Type /Annot")
	field_buffer.WriteString(" /Subtype /Widget")
	field_buffer.WriteString(" /Rect [0 0 0 0]")
	field_buffer.WriteString(" /P " + strconv.Itoa(int(page.GetID())) + " " + strconv.Itoa(int(page.GetGen())) + " R")
	field_buffer.WriteString(" /F 132")
	field_buffer.WriteString(" /FT /Sig")
	field_buffer.WriteString(" /T " + pdfString(field_name))
	field_buffer.WriteString(" /Ff 0")
	field_buffer.WriteString(" /V " + strconv.Itoa(int(signature_id)) + " 0 R")
	field_buffer.WriteString(" >>")

	return field_buffer.Bytes(), nil
}

// catalogWithForm rebuilds the document catalog so its AcroForm carries the
// existing fields plus the new signature field, with both signature flags
// set (SignaturesExist and AppendOnly).
func catalogWithForm(reader *pdf.Reader, field_id uint32) ([]byte, error) {
	root := reader.Trailer().Key("Root")

	var catalog_buffer bytes.Buffer
	catalog_buffer.WriteString("<< /Type /Catalog")

	for _, key := range root.Keys() {
		switch key {
		case "Type", "AcroForm":
			continue
		}
		value := root.Key(key)
		if ptr := value.GetPtr(); ptr.GetID() != 0 {
			catalog_buffer.WriteString(" /" + key + " " + strconv.Itoa(int(ptr.GetID())) + " " + strconv.Itoa(int(ptr.GetGen())) + " R")
			continue
		}
		// Direct values (an inline /Lang or /ViewerPreferences) are carried
		// over by their syntax.
		catalog_buffer.WriteString(" /" + key + " " + value.String())
	}

	if root.Key("Pages").IsNull() {
		return nil, &TemplateInvalidError{Msg: "document catalog has no page tree"}
	}

	catalog_buffer.WriteString(" /AcroForm << /Fields [")
	first := true
	fields := root.Key("AcroForm").Key("Fields")
	for i := 0; i < fields.Len(); i++ {
		ptr := fields.Index(i).GetPtr()
		if ptr.GetID() == 0 {
			continue
		}
		if !first {
			catalog_buffer.WriteString(" ")
		}
		catalog_buffer.WriteString(strconv.Itoa(int(ptr.GetID())) + " " + strconv.Itoa(int(ptr.GetGen())) + " R")
		first = false
	}
	if !first {
		catalog_buffer.WriteString(" ")
	}
	catalog_buffer.WriteString(strconv.Itoa(int(field_id)) + " 0 R")
	catalog_buffer.WriteString("]")
	catalog_buffer.WriteString(" /SigFlags 3")
	catalog_buffer.WriteString(" >>")

	catalog_buffer.WriteString(" >>")

	return catalog_buffer.Bytes(), nil
}

func existingSignatureCount(root pdf.Value) int {
	count := 0
	fields := root.Key("AcroForm").Key("Fields")
	for i := 0; i < fields.Len(); i++ {
		if fields.Index(i).Key("FT").Name() == "Sig" {
			count++
		}
	}
	return count
}
