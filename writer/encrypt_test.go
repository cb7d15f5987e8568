package writer

import (
	"strings"
	"testing"

	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/reader"
)

func buildEncrypted(t *testing.T, owner, user string, revision, bits int) []byte {
	t.Helper()
	w := New()
	p := w.CreateBlankPage(model.Rectangle{Urx: 612, Ury: 792})
	p.SetContents([]byte("BT (Top secret) Tj ET"))
	if _, err := w.AddPage(p); err != nil {
		t.Fatal(err)
	}
	if err := w.SetEncryption(owner, user, model.UserPermissions(0xFFFFFFFC), revision, bits); err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	if err := w.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return []byte(buf.String())
}

// user password "foo", owner password "bar": decrypt returns 1 for the
// user password, 2 for the owner password and 0 otherwise.
func TestDecryptReturnCodes(t *testing.T) {
	data := buildEncrypted(t, "bar", "foo", 3, 128)

	doc, err := reader.Open(data, reader.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !doc.NeedsPassword() {
		t.Fatal("expected an encrypted document")
	}
	if res, err := doc.Decrypt("baz"); err != nil || res != model.DecryptNoMatch {
		t.Fatalf("wrong password: got %v (%v)", res, err)
	}
	if res, err := doc.Decrypt("foo"); err != nil || res != model.DecryptUser {
		t.Fatalf("user password: got %v (%v)", res, err)
	}

	// a fresh document authenticates the owner password too
	doc2, err := reader.Open(data, reader.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res, err := doc2.Decrypt("bar"); err != nil || res != model.DecryptOwner {
		t.Fatalf("owner password: got %v (%v)", res, err)
	}
}

// encrypt -> decrypt -> extract text recovers the original content.
func TestEncryptionRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		revision, bits int
	}{
		{2, 40},
		{3, 128},
	} {
		data := buildEncrypted(t, "owner", "user", tt.revision, tt.bits)
		if strings.Contains(string(data), "Top secret") {
			t.Fatalf("rev %d: content left in the clear", tt.revision)
		}

		doc, err := reader.Open(data, reader.Options{})
		if err != nil {
			t.Fatal(err)
		}
		if res, err := doc.Decrypt("user"); err != nil || res != model.DecryptUser {
			t.Fatalf("rev %d: decrypt returned %v (%v)", tt.revision, res, err)
		}
		page, err := doc.GetPage(0)
		if err != nil {
			t.Fatal(err)
		}
		text, err := page.ExtractText()
		if err != nil {
			t.Fatal(err)
		}
		if text != "Top secret" {
			t.Fatalf("rev %d: extracted %q", tt.revision, text)
		}
	}
}

func TestSetEncryptionRejectsUnknownRevision(t *testing.T) {
	w := New()
	err := w.SetEncryption("o", "u", 0, 4, 128)
	if err == nil {
		t.Fatal("revision 4 (AES) is out of scope and must be rejected")
	}
	e, ok := err.(*model.Error)
	if !ok || e.Kind != model.KindUnsupportedEncryption {
		t.Fatalf("expected KindUnsupportedEncryption, got %v", err)
	}
}
