package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestRevision(t *testing.T) {
	a := Revision("<p>one</p>")
	if len(a) != 16 {
		t.Fatalf("len = %d", len(a))
	}
	if a != Revision("<p>one</p>") {
		t.Error("revision must be stable")
	}
	if a == Revision("<p>two</p>") {
		t.Error("different documents share a revision")
	}
}
