package protocol

import (
	"bytes"
	"testing"
)

func TestReassemblerTwoDeliveries(t *testing.T) {
	var r Reassembler

	if frames := r.Feed([]byte{0x03, 0x02}); len(frames) != 0 {
		t.Fatalf("first delivery produced %d frames", len(frames))
	}
	if r.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", r.Pending())
	}

	frames := r.Feed([]byte{0x00, 0xAA, 0xBB})
	framesEqual(t, frames, []Frame{{Kind: KindDeviceData, Length: 2, Payload: []byte{0xAA, 0xBB}}})
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
}

func TestReassemblerSplitHeader(t *testing.T) {
	var r Reassembler
	var got []Frame

	for _, chunk := range [][]byte{
		{0x02},
		{0x03, 0x00},
		{'a', 'b'},
		{'c'},
	} {
		got = append(got, r.Feed(chunk)...)
	}

	framesEqual(t, got, []Frame{{Kind: KindLog, Length: 3, Payload: []byte("abc")}})
}

func TestReassemblerByteAtATime(t *testing.T) {
	var stream []byte
	stream = append(stream, NewFrame(KindTimeStamps, bytes.Repeat([]byte{0x09}, 17)).Encode()...)
	stream = append(stream, NewFrame(KindRunMode, nil).Encode()...)
	stream = append(stream, NewFrame(KindDeviceData, []byte{1, 2, 3}).Encode()...)

	var r Reassembler
	var got []Frame
	for _, b := range stream {
		got = append(got, r.Feed([]byte{b})...)
	}

	want, _ := ParseFrames(nil, stream)
	framesEqual(t, got, want)
}

func TestReassemblerReset(t *testing.T) {
	var r Reassembler
	r.Feed([]byte{0x03, 0x05, 0x00, 0x01})
	if r.Pending() == 0 {
		t.Fatal("expected pending bytes before Reset")
	}

	r.Reset()
	if r.Pending() != 0 {
		t.Errorf("Pending() after Reset = %d, want 0", r.Pending())
	}

	frames := r.Feed([]byte{0x06, 0x00, 0x00})
	framesEqual(t, frames, []Frame{{Kind: KindTimeStamps, Payload: []byte{}}})
}

func TestReassemblerOversizedLengthWaits(t *testing.T) {
	var r Reassembler

	// A length of 0xFFFF with only a few bytes behind it just accumulates.
	if frames := r.Feed([]byte{0x02, 0xFF, 0xFF, 0x00, 0x01}); len(frames) != 0 {
		t.Fatalf("got %d frames, want 0", len(frames))
	}
	if frames := r.Feed(make([]byte, 100)); len(frames) != 0 {
		t.Fatalf("got %d frames, want 0", len(frames))
	}
	if r.Pending() != 105 {
		t.Errorf("Pending() = %d, want 105", r.Pending())
	}
}
