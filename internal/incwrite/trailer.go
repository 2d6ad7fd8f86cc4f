package incwrite

import (
	"fmt"
	"strconv"
	"strings"
)

// writeTrailer rebuilds the trailer dictionary for a table-type update. The
// dictionary is reconstructed from the parsed trailer rather than patched as
// text, so the source formatting cannot leak stale Size or Prev values.
func (u *Updater) writeTrailer() error {
	var b strings.Builder

	b.WriteString("trailer\n<<\n")
	fmt.Fprintf(&b, "  /Size %d\n", u.newSize())
	fmt.Fprintf(&b, "  /Root %s\n", u.rootRef())
	fmt.Fprintf(&b, "  /Prev %d\n", u.reader.XrefInformation.StartPos)

	info := u.reader.Trailer().Key("Info")
	if !info.IsNull() {
		ptr := info.GetPtr()
		if ptr.GetID() != 0 {
			fmt.Fprintf(&b, "  /Info %d %d R\n", ptr.GetID(), ptr.GetGen())
		}
	}

	if id0, id1, ok := u.documentID(); ok {
		fmt.Fprintf(&b, "  /ID [<%s><%s>]\n", id0, id1)
	}

	b.WriteString(">>\n")

	if _, err := u.output.Write([]byte(b.String())); err != nil {
		return err
	}

	return u.writeStartXref()
}

func (u *Updater) writeStartXref() error {
	if _, err := u.output.Write([]byte("startxref\n")); err != nil {
		return err
	}
	if _, err := u.output.Write([]byte(strconv.FormatInt(u.xrefStart, 10) + "\n")); err != nil {
		return err
	}
	_, err := u.output.Write([]byte("%%EOF\n"))
	return err
}
