package sms

import (
	"bytes"
	"testing"
)

func TestAssembleSMFSingleTrackIsFormatZero(t *testing.T) {
	body := []byte{0x00, 0x90, 60, 127}
	out, err := assembleSMF([][]byte{body}, 96)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantHeader := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6,
		0x00, 0x00, // format 0
		0x00, 0x01, // 1 track
		0x00, 0x60, // ppqn 96
	}
	if !bytes.Equal(out[:14], wantHeader) {
		t.Fatalf("got % x, want % x", out[:14], wantHeader)
	}
	wantTrack := []byte{'M', 'T', 'r', 'k', 0, 0, 0, 8, 0x00, 0x90, 60, 127, 0x00, 0xFF, 0x2F, 0x00}
	if !bytes.Equal(out[14:], wantTrack) {
		t.Fatalf("got % x, want % x", out[14:], wantTrack)
	}
}

func TestAssembleSMFMultiTrackIsFormatOne(t *testing.T) {
	out, err := assembleSMF([][]byte{{}, {}}, 480)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[8] != 0x00 || out[9] != 0x01 {
		t.Fatalf("expected format 1, got % x", out[8:10])
	}
	if out[10] != 0x00 || out[11] != 0x02 {
		t.Fatalf("expected 2 tracks, got % x", out[10:12])
	}
}

func TestAssembleSMFZeroTracksFails(t *testing.T) {
	if _, err := assembleSMF(nil, 96); err == nil {
		t.Fatalf("expected an error for zero tracks")
	}
}

func TestAssembleSMFEachTrackGetsEndOfTrack(t *testing.T) {
	out, err := assembleSMF([][]byte{{0x00, 0xB0, 7, 100}}, 96)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tail := out[len(out)-4:]
	want := []byte{0x00, 0xFF, 0x2F, 0x00}
	if !bytes.Equal(tail, want) {
		t.Fatalf("got % x, want % x", tail, want)
	}
}
