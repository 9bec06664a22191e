package sms

import "fmt"

// assembleSMF combines finished track bodies into a complete Standard MIDI
// File byte stream: format 0 when exactly one track was produced, format 1
// otherwise, with ppqn as the time division. The End-Of-Track meta event is
// appended here after each body rather than trusting every track to have
// written its own.
func assembleSMF(tracks [][]byte, ppqn uint16) ([]byte, error) {
	if len(tracks) < 1 {
		return nil, fmt.Errorf("sms: cannot assemble an SMF with zero tracks")
	}
	if len(tracks) > 0xFFFF {
		return nil, fmt.Errorf("sms: too many tracks (%d, max 65535)", len(tracks))
	}

	format := uint16(1)
	if len(tracks) == 1 {
		format = 0
	}

	out := newByteBuffer()
	out.write([]byte("MThd"))
	out.writeBE(6, 4)
	out.writeBE(uint32(format), 2)
	out.writeBE(uint32(len(tracks)), 2)
	out.writeBE(uint32(ppqn), 2)

	for _, body := range tracks {
		out.write([]byte("MTrk"))
		out.writeBE(uint32(len(body)+4), 4) // +4 for the trailing End-Of-Track
		out.write(body)
		out.writeVLQ(0)
		out.writeByte(0xFF)
		out.writeByte(metaEndOfTrack)
		out.writeByte(0x00)
	}

	return out.bytes(), nil
}
