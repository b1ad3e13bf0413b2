package contentstream

import (
	"bytes"
	"testing"
)

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("BT /F1 12 Tf 50 150 Td (Course Description) Tj ET"))
	f.Add([]byte("/H2 <</MCID 0>> BDC (text \\(escaped\\)) Tj EMC"))
	f.Add([]byte("0.5000 0.5000 0.5000 rg [<FEFF0043> -120 (b)] TJ % trailing\n"))
	f.Add([]byte("q 1 0 0 1 10 10 cm (unterminated"))
	f.Add([]byte("<<: garbage ] )"))

	f.Fuzz(func(t *testing.T, data []byte) {
		if got := Reassemble(Tokenize(data)); !bytes.Equal(got, data) {
			t.Errorf("round trip diverged:\n in: %q\nout: %q", data, got)
		}
	})
}
