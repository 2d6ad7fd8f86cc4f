package incwrite

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
)

// writeXrefTable writes an incremental cross-reference table covering the
// updated and new objects, one subsection per contiguous run.
func (u *Updater) writeXrefTable() error {
	if _, err := u.output.Write([]byte("xref\n")); err != nil {
		return err
	}

	for _, section := range u.sections() {
		header := fmt.Sprintf("%d %d\n", section[0].ID, len(section))
		if _, err := u.output.Write([]byte(header)); err != nil {
			return err
		}
		for _, e := range section {
			line := fmt.Sprintf("%010d 00000 n\r\n", e.Offset)
			if _, err := u.output.Write([]byte(line)); err != nil {
				return err
			}
		}
	}

	return nil
}

// sections groups all entries of this update into runs of consecutive object
// numbers, as required by the xref subsection format.
func (u *Updater) sections() [][]entry {
	all := make([]entry, 0, len(u.updatedEntries)+len(u.newEntries))
	all = append(all, u.updatedEntries...)
	all = append(all, u.newEntries...)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	var sections [][]entry
	for _, e := range all {
		n := len(sections)
		if n > 0 && sections[n-1][len(sections[n-1])-1].ID+1 == e.ID {
			sections[n-1] = append(sections[n-1], e)
			continue
		}
		sections = append(sections, []entry{e})
	}
	return sections
}

// writeXrefStream appends a cross-reference stream object. Used when the
// source document carries stream-type xref; mixing table and stream sections
// in one chain confuses several readers.
func (u *Updater) writeXrefStream() error {
	// The stream is itself an indirect object and must list its own offset.
	id := u.NextObjectID()
	u.newEntries = append(u.newEntries, entry{ID: id, Offset: u.xrefStart})

	var raw bytes.Buffer
	sections := u.sections()
	for _, section := range sections {
		for _, e := range section {
			writeXrefStreamLine(&raw, 1, int(e.Offset), 0)
		}
	}

	encoded, err := flateEncode(raw.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}

	var body bytes.Buffer
	body.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&body, "  /Length %d\n", len(encoded))
	body.WriteString("  /Filter /FlateDecode\n")
	body.WriteString("  /W [ 1 4 1 ]\n")
	fmt.Fprintf(&body, "  /Prev %d\n", u.reader.XrefInformation.StartPos)
	fmt.Fprintf(&body, "  /Size %d\n", u.newSize())

	body.WriteString("  /Index [")
	for _, section := range sections {
		fmt.Fprintf(&body, " %d %d", section[0].ID, len(section))
	}
	body.WriteString(" ]\n")

	fmt.Fprintf(&body, "  /Root %s\n", u.rootRef())

	id0, id1, ok := u.documentID()
	if ok {
		fmt.Fprintf(&body, "  /ID [<%s><%s>]\n", id0, id1)
	}

	body.WriteString(">>\nstream\n")
	body.Write(encoded)
	body.WriteString("\nendstream")

	return u.writeObject(id, body.Bytes())
}

// writeXrefStreamLine writes one [type, offset, generation] row with the
// 1-4-1 byte widths declared in /W.
func writeXrefStreamLine(b *bytes.Buffer, xreftype byte, offset int, gen byte) {
	b.WriteByte(xreftype)

	offsetBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(offsetBytes, uint32(offset))
	b.Write(offsetBytes)

	b.WriteByte(gen)
}

func flateEncode(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// documentID returns the two /ID strings from the source trailer, hex encoded.
func (u *Updater) documentID() (string, string, bool) {
	id := u.reader.Trailer().Key("ID")
	if id.IsNull() || id.Len() < 2 {
		return "", "", false
	}
	id0 := hex.EncodeToString([]byte(id.Index(0).RawString()))
	id1 := hex.EncodeToString([]byte(id.Index(1).RawString()))
	return id0, id1, true
}
