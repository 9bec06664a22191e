package sms

import "testing"

func TestSymbolTableRejectsDuplicateAcrossKinds(t *testing.T) {
	st := newSymbolTable()
	if !st.declare("foo", symInstrument, "first") {
		t.Fatal("first declare should succeed")
	}
	if st.declare("foo", symChord, "second") {
		t.Fatal("duplicate name across kinds must be rejected")
	}
	sym, ok := st.lookup("foo")
	if !ok || sym.payload != "first" {
		t.Fatal("original object must be unchanged after a rejected duplicate insert")
	}
}

func TestSymbolTablePreservesInsertionOrder(t *testing.T) {
	st := newSymbolTable()
	st.declare("b", symInstrument, nil)
	st.declare("a", symInstrument, nil)
	st.declare("c", symInstrument, nil)
	want := []string{"b", "a", "c"}
	got := st.names()
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}
}
