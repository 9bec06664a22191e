package sms

import "testing"

func TestTokenizerWordsAndNewline(t *testing.T) {
	tz := newTokenizer([]byte("I: piano &prg=0\nc5/4\n"))
	var got []string
	for {
		tok := tz.next()
		if tok.Kind == tokEOD {
			break
		}
		got = append(got, tok.Text)
	}
	want := []string{"I:", "piano", "&prg=0", "\n", "c5/4", "\n"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenizerSingleCharToken(t *testing.T) {
	tz := newTokenizer([]byte("| ( ) [ ]"))
	var kinds []tokenKind
	for {
		tok := tz.next()
		if tok.Kind == tokEOD {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	for _, k := range kinds {
		if k != tokChar {
			t.Fatalf("expected all single-char tokens, got kind %v", k)
		}
	}
}

func TestTokenizerEOD(t *testing.T) {
	tz := newTokenizer([]byte(""))
	tok := tz.next()
	if tok.Kind != tokEOD {
		t.Fatalf("empty input should return EOD immediately")
	}
}

func TestTokenizerSkipsTabsAndSpacesOnly(t *testing.T) {
	tz := newTokenizer([]byte("  \t  c5/4  \t"))
	tok := tz.next()
	if tok.Text != "c5/4" {
		t.Fatalf("got %q, want c5/4", tok.Text)
	}
	tok = tz.next()
	if tok.Kind != tokEOD {
		t.Fatalf("expected EOD after trailing whitespace, got %+v", tok)
	}
}
