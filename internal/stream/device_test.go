package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/satindergrewal/polysynth/internal/audio"
	"github.com/satindergrewal/polysynth/internal/pcm"
)

func TestFrameConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	if got := SampleRate * int(FrameDuration/time.Millisecond) / 1000; got != FrameSize {
		t.Errorf("FrameSize mismatch: want %d, got %d", got, FrameSize)
	}
}

func TestDeviceNegotiate(t *testing.T) {
	b := NewBroadcaster()
	d := NewDevice(b)
	req := pcm.Request{Channels: 6, Rate: 44100, Format: pcm.S16LE, BufferTime: 100 * time.Millisecond, PeriodTime: 5 * time.Millisecond}
	p, err := d.Negotiate(req)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if p.Rate != SampleRate || p.Channels != MaxChannels || p.PeriodSize != FrameSize {
		t.Errorf("params = %v, want 48kHz 2ch 960-frame periods", p)
	}
	if p.BufferSize != 5*FrameSize {
		t.Errorf("BufferSize = %d, want %d", p.BufferSize, 5*FrameSize)
	}
	if f, ok := b.Format(); !ok || f.Channels != MaxChannels {
		t.Errorf("broadcaster format = %+v, %v", f, ok)
	}

	if _, err := NewDevice(b).Negotiate(pcm.Request{Format: pcm.F32LE}); err == nil {
		t.Error("float format should be refused")
	}
}

func TestDevicePacesAndPublishes(t *testing.T) {
	d := NewDevice(NewBroadcaster())
	if _, err := d.Negotiate(pcm.Request{Channels: 1, Format: pcm.S16LE}); err != nil {
		t.Fatal(err)
	}
	period := make([]int16, FrameSize)
	period[0] = 7

	start := time.Now()
	for i := 0; i < 3; i++ {
		n, err := d.WritePeriod(period)
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if n != FrameSize {
			t.Errorf("write %d: %d frames, want %d", i, n, FrameSize)
		}
		period[0]++ // published frames are copies
	}
	if elapsed := time.Since(start); elapsed < 2*FrameDuration {
		t.Errorf("three periods took %v, want at least %v", elapsed, 2*FrameDuration)
	}
	for want := int16(7); want < 10; want++ {
		select {
		case f := <-d.Frames():
			if f[0] != want {
				t.Errorf("frame[0] = %d, want %d", f[0], want)
			}
		default:
			t.Fatalf("frame %d not published", want)
		}
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-d.Frames(); ok {
		t.Error("Frames not closed")
	}
	if _, err := d.WritePeriod(period); err == nil {
		t.Error("write after close should fail")
	}
}

func TestDeviceLateWriteUnderruns(t *testing.T) {
	d := NewDevice(NewBroadcaster())
	if _, err := d.Negotiate(pcm.Request{Channels: 1, Format: pcm.S16LE}); err != nil {
		t.Fatal(err)
	}
	period := make([]int16, FrameSize)
	if _, err := d.WritePeriod(period); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * FrameDuration)

	_, err := d.WritePeriod(period)
	if !errors.Is(err, audio.ErrUnderrun) {
		t.Fatalf("late write = %v, want ErrUnderrun", err)
	}
	if err := d.Recover(err); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if _, err := d.WritePeriod(period); err != nil {
		t.Errorf("write after recover: %v", err)
	}
}
