package stream

import (
	"context"
	"testing"
	"time"
)

func runBroadcaster(t *testing.T, b *Broadcaster, source chan []int16) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		b.Run(ctx, source)
	}()
	return func() {
		cancel()
		select {
		case <-exited:
		case <-time.After(2 * time.Second):
			t.Fatal("Broadcaster did not stop after context cancel")
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	l1, l2 := b.Subscribe(), b.Subscribe()
	if b.ListenerCount() != 2 {
		t.Fatalf("ListenerCount = %d, want 2", b.ListenerCount())
	}
	b.Unsubscribe(l1)
	b.Unsubscribe(l1)
	if b.ListenerCount() != 1 {
		t.Errorf("ListenerCount = %d after unsubscribing twice, want 1", b.ListenerCount())
	}
	select {
	case <-l1.Done():
	default:
		t.Error("Listener done channel not closed after unsubscribe")
	}
	b.Unsubscribe(l2)
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", b.ListenerCount())
	}
}

func TestBroadcastFansOut(t *testing.T) {
	b := NewBroadcaster()
	listeners := make([]*Listener, 4)
	for i := range listeners {
		listeners[i] = b.Subscribe()
	}
	source := make(chan []int16, 1)
	stop := runBroadcaster(t, b, source)
	defer stop()

	source <- []int16{42, -42}
	for i, l := range listeners {
		select {
		case got := <-l.C:
			if len(got) != 2 || got[0] != 42 || got[1] != -42 {
				t.Errorf("listener %d got %v", i, got)
			}
		case <-time.After(time.Second):
			t.Errorf("listener %d timed out", i)
		}
	}
}

func TestBroadcastDropsForSlowListener(t *testing.T) {
	b := NewBroadcaster()
	slow := b.Subscribe()
	source := make(chan []int16, 200)
	stop := runBroadcaster(t, b, source)

	for i := 0; i < 200; i++ {
		source <- []int16{int16(i)}
	}
	deadline := time.After(2 * time.Second)
	for len(source) > 0 {
		select {
		case <-deadline:
			t.Fatal("broadcaster did not consume source")
		case <-time.After(time.Millisecond):
		}
	}
	stop()

	if n := len(slow.C); n != cap(slow.C) {
		t.Errorf("slow listener holds %d frames, want its full buffer %d", n, cap(slow.C))
	}
	if d := b.Dropped(); d != 50 {
		t.Errorf("Dropped = %d, want 50", d)
	}
}

func TestBroadcastStopsOnSourceClose(t *testing.T) {
	b := NewBroadcaster()
	l := b.Subscribe()
	source := make(chan []int16)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		b.Run(context.Background(), source)
	}()
	close(source)
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcaster did not stop after source closed")
	}
	select {
	case <-l.Done():
	default:
		t.Error("listener not released when the source closed")
	}
	if n := b.ListenerCount(); n != 0 {
		t.Errorf("ListenerCount = %d after source closed", n)
	}
}

func TestBroadcasterFormat(t *testing.T) {
	b := NewBroadcaster()
	if _, ok := b.Format(); ok {
		t.Fatal("format reported before negotiation")
	}
	b.SetFormat(Format{Rate: SampleRate, Channels: 1})
	f, ok := b.Format()
	if !ok || f.Rate != SampleRate || f.Channels != 1 {
		t.Errorf("Format = %+v, %v", f, ok)
	}
}

func TestEncoderArgs(t *testing.T) {
	h := NewHTTPHandler(NewBroadcaster(), "", "")
	args := h.encoderArgs(Format{Rate: 48000, Channels: 1})
	want := map[string]string{"-ar": "48000", "-ac": "1", "-b:a": DefaultMP3Bitrate, "-f": "s16le"}
	for i := 0; i+1 < len(args); i++ {
		if v, ok := want[args[i]]; ok {
			if args[i+1] != v {
				t.Errorf("%s = %s, want %s", args[i], args[i+1], v)
			}
			delete(want, args[i])
		}
	}
	if len(want) != 0 {
		t.Errorf("missing arguments %v", want)
	}
	if h.ffmpeg != "ffmpeg" {
		t.Errorf("ffmpeg binary = %q", h.ffmpeg)
	}
}
