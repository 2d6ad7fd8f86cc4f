// Package incwrite appends incremental updates to an existing PDF.
//
// A PDF incremental update leaves the original bytes untouched and appends
// replacement or new objects, a cross-reference section covering them, and a
// trailer pointing back at the previous cross-reference section. Both the
// form-filling and the signature-placeholder stages use this writer, so a
// document can be updated twice without rewriting its body.
package incwrite

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"
)

type entry struct {
	ID     uint32
	Offset int64
}

// Updater accumulates objects for one incremental update on top of an input
// document. Call AddObject/UpdateObject, then Finalize once.
type Updater struct {
	input  []byte
	reader *pdf.Reader

	output *filebuffer.Buffer

	lastObjectID   uint32
	newEntries     []entry
	updatedEntries []entry

	// Catalog object written by this update, 0 when the root is unchanged.
	rootObjectID uint32

	xrefStart int64
}

// New prepares an updater for one incremental update. The reader must have
// been created over the same bytes as input.
func New(input []byte, reader *pdf.Reader) (*Updater, error) {
	if reader.XrefInformation.ItemCount < 1 {
		return nil, fmt.Errorf("document has an empty xref table")
	}

	u := &Updater{
		input:  input,
		reader: reader,
		output: filebuffer.New([]byte{}),

		// Object numbers are allocated after the highest existing one.
		// The xref item count includes the head of the free list (object 0).
		lastObjectID: uint32(reader.XrefInformation.ItemCount) - 1,
	}

	if _, err := u.output.Write(input); err != nil {
		return nil, err
	}

	// The update must start on its own line.
	if len(input) == 0 || input[len(input)-1] != '\n' {
		if _, err := u.output.Write([]byte("\n")); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// Reader returns the reader over the original document.
func (u *Updater) Reader() *pdf.Reader {
	return u.reader
}

// NextObjectID returns the object number the next AddObject call will use.
func (u *Updater) NextObjectID() uint32 {
	return u.lastObjectID + uint32(len(u.newEntries)) + 1
}

// AddObject appends a new indirect object and returns its object number.
// The body must not include the "N 0 obj" header or "endobj" footer.
func (u *Updater) AddObject(body []byte) (uint32, error) {
	id := u.NextObjectID()
	offset, err := u.output.Seek(0, 2)
	if err != nil {
		return 0, err
	}

	u.newEntries = append(u.newEntries, entry{ID: id, Offset: offset})

	if err := u.writeObject(id, body); err != nil {
		return 0, fmt.Errorf("failed to write object %d: %w", id, err)
	}
	return id, nil
}

// UpdateObject appends a replacement for an existing indirect object.
func (u *Updater) UpdateObject(id uint32, body []byte) error {
	if id == 0 || id > u.lastObjectID {
		return fmt.Errorf("object %d does not exist in the source document", id)
	}
	offset, err := u.output.Seek(0, 2)
	if err != nil {
		return err
	}

	u.updatedEntries = append(u.updatedEntries, entry{ID: id, Offset: offset})

	if err := u.writeObject(id, body); err != nil {
		return fmt.Errorf("failed to update object %d: %w", id, err)
	}
	return nil
}

func (u *Updater) writeObject(id uint32, body []byte) error {
	if _, err := u.output.Write([]byte(strconv.FormatUint(uint64(id), 10) + " 0 obj\n")); err != nil {
		return err
	}
	if _, err := u.output.Write(bytes.TrimRight(body, "\n")); err != nil {
		return err
	}
	if _, err := u.output.Write([]byte("\nendobj\n")); err != nil {
		return err
	}
	return nil
}

// SetRoot records that the given object replaces the document catalog.
func (u *Updater) SetRoot(id uint32) {
	u.rootObjectID = id
}

// Finalize writes the cross-reference section and trailer and returns the
// complete updated document.
func (u *Updater) Finalize() ([]byte, error) {
	var err error
	u.xrefStart, err = u.output.Seek(0, 2)
	if err != nil {
		return nil, err
	}

	switch u.reader.XrefInformation.Type {
	case "table":
		if err := u.writeXrefTable(); err != nil {
			return nil, fmt.Errorf("failed to write xref table: %w", err)
		}
		if err := u.writeTrailer(); err != nil {
			return nil, fmt.Errorf("failed to write trailer: %w", err)
		}
	case "stream":
		if err := u.writeXrefStream(); err != nil {
			return nil, fmt.Errorf("failed to write xref stream: %w", err)
		}
		if err := u.writeStartXref(); err != nil {
			return nil, fmt.Errorf("failed to write startxref: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown xref type: %s", u.reader.XrefInformation.Type)
	}

	if _, err := u.output.Seek(0, 0); err != nil {
		return nil, err
	}
	out := u.output.Buff.Bytes()
	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

// rootRef returns the indirect reference to the document catalog, preferring
// a catalog written by this update.
func (u *Updater) rootRef() string {
	if u.rootObjectID != 0 {
		return strconv.FormatUint(uint64(u.rootObjectID), 10) + " 0 R"
	}
	ptr := u.reader.Trailer().Key("Root").GetPtr()
	return strconv.FormatUint(uint64(ptr.GetID()), 10) + " " + strconv.FormatUint(uint64(ptr.GetGen()), 10) + " R"
}

func (u *Updater) newSize() int64 {
	return u.reader.XrefInformation.ItemCount + int64(len(u.newEntries))
}
