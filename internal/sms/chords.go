package sms

// chordOctave is the octave a chord's key offsets are anchored at; arp
// playback shifts relative to it with > and <.
const chordOctave = 3

// builtinChords is the standard library of key-chord types, installed into
// every symbol table before compilation begins so a script can reference
// them (e.g. "Cmaj", "Cm7") without first defining them.
var builtinChords = []struct {
	name    string
	offsets []int
}{
	{"maj", []int{0, 4, 7}},
	{"7", []int{0, 4, 7, 10}},
	{"maj7", []int{0, 4, 7, 11}},
	{"6", []int{0, 4, 7, 9}},
	{"6/9", []int{0, 4, 7, 9, 14}},
	{"5", []int{0, 7}},
	{"9", []int{0, 4, 7, 10, 14}},
	{"maj9", []int{0, 4, 7, 10, 13}},
	{"11", []int{0, 4, 7, 10, 14, 16}},
	{"13", []int{0, 4, 7, 10, 14, 17, 21}},
	{"maj13", []int{0, 4, 7, 11, 14, 21}},
	{"add", []int{0, 4, 7, 14}},
	{"7-5", []int{0, 4, 6, 10}},
	{"7+5", []int{0, 4, 8, 10}},
	{"sus", []int{0, 5, 7}},
	{"dim", []int{0, 3, 6}},
	{"dim7", []int{0, 3, 6, 9}},
	{"aug", []int{0, 3, 8}},
	{"aug7", []int{0, 3, 10}},
	{"m", []int{0, 3, 7}},
	{"m7", []int{0, 3, 7, 10}},
	{"mM7", []int{0, 3, 7, 11}},
	{"m6", []int{0, 3, 7, 9}},
	{"m9", []int{0, 3, 7, 10, 14}},
	{"m11", []int{0, 3, 7, 10, 14, 16}},
	{"m13", []int{0, 3, 7, 10, 14, 17, 21}},
	{"m7b5", []int{0, 3, 6, 10}},
}

// chordDef is the symbol-table payload for both built-in and user-declared
// key chords.
type chordDef struct {
	Name    string
	Offsets []int
}

// installBuiltinChords declares every entry of builtinChords into tbl. It
// panics on a name collision since builtinChords itself is a fixed,
// internally-consistent table whose names are checked for uniqueness by
// TestBuiltinChordsHaveUniqueNames; a collision here would be a programming
// error, not a user-facing one.
func installBuiltinChords(tbl *symbolTable) {
	for _, c := range builtinChords {
		def := &chordDef{Name: c.name, Offsets: append([]int(nil), c.offsets...)}
		if !tbl.declare(c.name, symChord, def) {
			panic("sms: duplicate builtin chord name " + c.name)
		}
	}
}
