package sms

import (
	"bytes"
	"testing"
)

func TestTrackWriterChannelMessageTwoBytes(t *testing.T) {
	w := newTrackWriter()
	w.writeChannelMessage(0, 0x90, 60, 127)
	want := []byte{0x00, 0x90, 60, 127}
	if !bytes.Equal(w.bytes(), want) {
		t.Fatalf("got % x, want % x", w.bytes(), want)
	}
}

func TestTrackWriterProgramChangeOmitsData2(t *testing.T) {
	w := newTrackWriter()
	w.writeChannelMessage(0, 0xC0, 5, 0xAA)
	want := []byte{0x00, 0xC0, 5}
	if !bytes.Equal(w.bytes(), want) {
		t.Fatalf("program change must write only one data byte; got % x", w.bytes())
	}
}

func TestTrackWriterChannelPressureOmitsData2(t *testing.T) {
	w := newTrackWriter()
	w.writeChannelMessage(0, 0xD3, 64, 0xAA)
	want := []byte{0x00, 0xD3, 64}
	if !bytes.Equal(w.bytes(), want) {
		t.Fatalf("channel pressure must write only one data byte; got % x", w.bytes())
	}
}

func TestTrackWriterSysExScansToTerminator(t *testing.T) {
	w := newTrackWriter()
	w.writeSysEx([]byte{0x01, 0x02, 0xF7, 0xFF, 0xFF})
	want := []byte{0x00, 0xF0, 0x03, 0x01, 0x02, 0xF7}
	if !bytes.Equal(w.bytes(), want) {
		t.Fatalf("got % x, want % x", w.bytes(), want)
	}
}

func TestTrackWriterSysExNoTerminatorWritesNothing(t *testing.T) {
	w := newTrackWriter()
	w.writeSysEx(bytes.Repeat([]byte{0x01}, sysexMaxScanSize+1))
	if len(w.bytes()) != 0 {
		t.Fatalf("expected no bytes written when no 0xF7 terminator is found, got % x", w.bytes())
	}
}

func TestTrackWriterMetaText(t *testing.T) {
	w := newTrackWriter()
	w.writeMetaText(metaCopyright, "(c)")
	want := []byte{0x00, 0xFF, metaCopyright, 0x03, '(', 'c', ')'}
	if !bytes.Equal(w.bytes(), want) {
		t.Fatalf("got % x, want % x", w.bytes(), want)
	}
}

func TestTrackWriterMetaEmptyTextWritesNothing(t *testing.T) {
	w := newTrackWriter()
	w.writeMetaText(metaCopyright, "")
	if len(w.bytes()) != 0 {
		t.Fatalf("empty meta text should write nothing, got % x", w.bytes())
	}
}

func TestTrackWriterTempo(t *testing.T) {
	w := newTrackWriter()
	w.writeTempo(500000) // 120 bpm
	want := []byte{0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}
	if !bytes.Equal(w.bytes(), want) {
		t.Fatalf("got % x, want % x", w.bytes(), want)
	}
}
