package pdf

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
)

// SaveIncremental appends the dirty objects, a new xref section, and a new
// trailer after the original bytes, then rewrites the file. Append-only
// updates keep every edit auditable: the original document remains intact
// inside the output byte-for-byte.
func (d *Document) SaveIncremental() error {
	if d.closed {
		return ErrClosed
	}
	dirty := d.Dirty()
	if len(dirty) == 0 {
		return nil
	}

	var tail bytes.Buffer
	base := int64(len(d.data))
	if len(d.data) > 0 && d.data[len(d.data)-1] != '\n' {
		tail.WriteByte('\n')
	}

	offsets := make(map[int]int64, len(dirty))
	for _, num := range dirty {
		offsets[num] = base + int64(tail.Len())
		tail.Write(SerializeIndirect(num, d.gens[num], d.object(num)))
	}

	xrefOffset := base + int64(tail.Len())
	tail.WriteString("xref\n")
	for i := 0; i < len(dirty); {
		j := i
		for j+1 < len(dirty) && dirty[j+1] == dirty[j]+1 {
			j++
		}
		fmt.Fprintf(&tail, "%d %d\n", dirty[i], j-i+1)
		for k := i; k <= j; k++ {
			fmt.Fprintf(&tail, "%010d %05d n \n", offsets[dirty[k]], d.gens[dirty[k]])
		}
		i = j + 1
	}

	trailer := NewDict()
	trailer.Set("Size", Integer(d.maxNum+1))
	trailer.Set("Root", Ref{Num: d.catalog})
	trailer.Set("Prev", Integer(d.prevXref))
	for _, key := range []string{"Info", "ID"} {
		if v, ok := d.trailer.Get(key); ok {
			trailer.Set(key, v)
		}
	}
	tail.WriteString("trailer\n")
	AppendObject(&tail, trailer)
	fmt.Fprintf(&tail, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	d.data = append(d.data, tail.Bytes()...)
	if d.path != "" {
		if err := os.WriteFile(d.path, d.data, 0o644); err != nil {
			return fmt.Errorf("pdf: save: %w", err)
		}
	}
	d.prevXref = xrefOffset
	d.log.Debug("incremental save",
		observability.Int("objects", len(dirty)),
		observability.Int("bytes", int(int64(len(d.data))-base)))
	d.dirty = make(map[int]bool)
	return nil
}

// Bytes returns the document's current serialized form, including any
// saved increments. Useful for in-memory round trips in tests.
func (d *Document) Bytes() []byte { return d.data }
