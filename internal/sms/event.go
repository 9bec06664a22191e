package sms

import "sort"

// event is one absolute-time MIDI occurrence produced by the compiler. A
// nonzero BPM marks a tempo change rather than a channel message.
type event struct {
	Track  string
	ID     int
	Time   int
	Status byte
	Data1  byte
	Data2  byte
	BPM    int
}

// eventList is an append-only collection of events produced while parsing.
// An append-based slice streams insertions just fine and keeps the later
// sort cheap.
type eventList struct {
	events []event
	nextID int
}

func newEventList() *eventList {
	return &eventList{}
}

// append records a new event and returns the strictly increasing id
// assigned to it.
func (l *eventList) append(track string, time int, status, data1, data2 byte) int {
	id := l.nextID
	l.nextID++
	l.events = append(l.events, event{Track: track, ID: id, Time: time, Status: status, Data1: data1, Data2: data2})
	return id
}

// appendTempo records a tempo-change event: same timeline, but with BPM set
// and the status/data bytes unused.
func (l *eventList) appendTempo(track string, time, bpm int) int {
	id := l.nextID
	l.nextID++
	l.events = append(l.events, event{Track: track, ID: id, Time: time, BPM: bpm})
	return id
}

func (l *eventList) len() int {
	return len(l.events)
}

// sorted returns a stably-sorted snapshot, ordered by (track name
// ASCII-lexicographic, time ascending, id ascending). The id tiebreak
// preserves source emission order for same-(track,time) events even though
// sort.Slice itself is not guaranteed stable, because id is already a
// total, strictly increasing order.
func (l *eventList) sorted() []event {
	out := make([]event, len(l.events))
	copy(out, l.events)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return out
}
