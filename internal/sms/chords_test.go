package sms

import "testing"

func TestBuiltinChordsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range builtinChords {
		if seen[c.name] {
			t.Fatalf("duplicate builtin chord name %q", c.name)
		}
		seen[c.name] = true
	}
	if len(builtinChords) != 27 {
		t.Fatalf("expected 27 builtin chords, got %d", len(builtinChords))
	}
}

func TestInstallBuiltinChordsPopulatesSymbolTable(t *testing.T) {
	tbl := newSymbolTable()
	installBuiltinChords(tbl)

	sym, ok := tbl.lookup("maj7")
	if !ok {
		t.Fatalf("expected maj7 to be declared")
	}
	if sym.kind != symChord {
		t.Fatalf("expected symChord kind, got %v", sym.kind)
	}
	def := sym.payload.(*chordDef)
	want := []int{0, 4, 7, 11}
	if len(def.Offsets) != len(want) {
		t.Fatalf("got offsets %v, want %v", def.Offsets, want)
	}
	for i := range want {
		if def.Offsets[i] != want[i] {
			t.Fatalf("got offsets %v, want %v", def.Offsets, want)
		}
	}
}

func TestInstallBuiltinChordsMinorTriad(t *testing.T) {
	tbl := newSymbolTable()
	installBuiltinChords(tbl)
	sym, _ := tbl.lookup("m")
	def := sym.payload.(*chordDef)
	want := []int{0, 3, 7}
	for i := range want {
		if def.Offsets[i] != want[i] {
			t.Fatalf("got offsets %v, want %v", def.Offsets, want)
		}
	}
}
