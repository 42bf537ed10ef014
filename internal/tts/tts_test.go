package tts

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-audio/wav"
)

// TestEncodeWAVRoundTrip checks header fields and sample values.
func TestEncodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}

	out, err := EncodeWAV(pcm, 22050, 1)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(out))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != 22050 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("format = %d Hz / %d ch / %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("samples = %d, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}

	rate, ch, err := DecodeWAVInfo(out)
	if err != nil || rate != 22050 || ch != 1 {
		t.Fatalf("DecodeWAVInfo() = %d, %d, %v", rate, ch, err)
	}
}

// TestEncodeWAVRejectsOddLength checks partial sample detection.
func TestEncodeWAVRejectsOddLength(t *testing.T) {
	if _, err := EncodeWAV([]byte{1, 2, 3}, 16000, 1); err == nil {
		t.Fatal("expected error for odd pcm length")
	}
}

// TestValidateRate checks the accepted range and the default.
func TestValidateRate(t *testing.T) {
	cases := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, 100, false},
		{60, 60, false},
		{200, 200, false},
		{59, 0, true},
		{201, 0, true},
		{-5, 0, true},
	}
	for _, tc := range cases {
		got, err := ValidateRate(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("ValidateRate(%d) = %d, %v", tc.in, got, err)
		}
	}
}
