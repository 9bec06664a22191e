package sms

import "testing"

func TestEventListSortsByTrackThenTimeThenID(t *testing.T) {
	l := newEventList()
	l.append("b", 10, 0x90, 60, 127)
	l.append("a", 20, 0x90, 62, 127)
	l.append("a", 10, 0x90, 64, 127)
	l.append("a", 10, 0x90, 65, 127) // same track+time as previous; id breaks the tie

	sorted := l.sorted()
	wantTracks := []string{"a", "a", "a", "b"}
	for i, track := range wantTracks {
		if sorted[i].Track != track {
			t.Fatalf("sorted[%d].Track = %q, want %q", i, sorted[i].Track, track)
		}
	}
	if sorted[0].Data1 != 64 || sorted[1].Data1 != 65 {
		t.Fatalf("tie on (track,time) must preserve emission order by id, got %v then %v",
			sorted[0].Data1, sorted[1].Data1)
	}
	if sorted[2].Time != 20 {
		t.Fatalf("expected the later time to sort after, got %v", sorted[2])
	}
}
