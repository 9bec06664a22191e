package sms

import "fmt"

const (
	copyrightText   = "(c) ma.ke. 2024"
	programNameText = "created with HIDCAM-SMS"
	microsPerMinute = 60000000
)

// Report summarizes a successful compilation for display to a caller.
type Report struct {
	Name     string
	Tracks   int
	Events   int
	Words    int
	Lines    int
	DrumKeys int
	Chords   int
	Arps     int
	Macros   int
	PPQN     int
	BPM      int
}

func (r *Report) String() string {
	return fmt.Sprintf("%q: %d track(s), %d event(s), %d word(s) on %d line(s), ppqn=%d bpm=%d",
		r.Name, r.Tracks, r.Events, r.Words, r.Lines, r.PPQN, r.BPM)
}

// finalize sorts the accumulated event list, transcodes every track to
// delta-time MIDI, and assembles the finished SMF. A track buffer is only
// allocated for a track name once that name is actually seen in the sorted
// event list — a declared track with no events never becomes an MTrk.
func (c *compiler) finalize() ([]byte, *Report, error) {
	sorted := c.events.sorted()

	byName := make(map[string]*track, len(c.tracks))
	for _, trk := range c.tracks {
		byName[trk.Name] = trk
	}

	var bodies [][]byte
	var w *trackWriter
	lastTrackName := ""
	songTime := 0
	firstTrack := true

	for _, ev := range sorted {
		if ev.Track != lastTrackName {
			if w != nil {
				bodies = append(bodies, w.bytes())
			}
			strk := byName[ev.Track]
			w = newTrackWriter()
			if firstTrack {
				w.writeTempo(microsPerMinute / uint32(c.header.BPM))
				w.writeMetaText(metaCopyright, copyrightText)
				w.writeMetaText(metaProgramName, programNameText)
				firstTrack = false
			}
			w.writeMetaText(metaDeviceName, ev.Track)
			w.writeChannelMessage(0, 0xB0+byte(strk.Channel), 0, byte(strk.Bank))
			w.writeChannelMessage(0, 0xC0+byte(strk.Channel), byte(strk.Program), 0)
			songTime = 0
			lastTrackName = ev.Track
		}

		delta := ev.Time - songTime
		songTime = ev.Time
		if ev.BPM != 0 {
			// Tempo metas carry delta 0; delta is recomputed from the
			// following event.
			w.writeTempo(microsPerMinute / uint32(ev.BPM))
			continue
		}
		w.writeChannelMessage(uint32(delta), ev.Status, ev.Data1, ev.Data2)
	}
	if w != nil {
		bodies = append(bodies, w.bytes())
	}

	smfBytes, err := assembleSMF(bodies, uint16(c.header.PPQN))
	if err != nil {
		return nil, nil, err
	}

	report := &Report{
		Name:     c.header.Name,
		Tracks:   len(c.tracks),
		Events:   c.events.len(),
		Words:    c.words,
		Lines:    c.lines,
		DrumKeys: c.header.DrumKeys,
		Chords:   c.header.Chords,
		Arps:     c.header.Arps,
		Macros:   c.header.Macros,
		PPQN:     c.header.PPQN,
		BPM:      c.header.BPM,
	}
	return smfBytes, report, nil
}
