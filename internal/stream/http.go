package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

// DefaultMP3Bitrate is passed to the encoder as -b:a.
const DefaultMP3Bitrate = "192k"

// HTTPHandler serves a chunked MP3 audio stream via HTTP.
// Each connection spawns an FFmpeg process to encode PCM -> MP3 in real-time.
type HTTPHandler struct {
	broadcaster *Broadcaster
	ffmpeg      string
	bitrate     string
}

// NewHTTPHandler creates an HTTP stream handler running the given ffmpeg
// binary. Empty arguments use "ffmpeg" and DefaultMP3Bitrate.
func NewHTTPHandler(b *Broadcaster, ffmpeg, bitrate string) *HTTPHandler {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if bitrate == "" {
		bitrate = DefaultMP3Bitrate
	}
	return &HTTPHandler{broadcaster: b, ffmpeg: ffmpeg, bitrate: bitrate}
}

// encoderArgs returns the ffmpeg arguments for encoding f to MP3.
func (h *HTTPHandler) encoderArgs(f Format) []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(f.Rate),
		"-ac", strconv.Itoa(f.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", h.bitrate,
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	format, ok := h.broadcaster.Format()
	if !ok {
		http.Error(w, "synth not started", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	enc, err := h.start(ctx, format)
	if err != nil {
		slog.Error("stream: ffmpeg", "error", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}
	defer enc.cmd.Wait()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", "polysynth")

	l := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(l)
	slog.Info("stream: http listener connected", "listeners", h.broadcaster.ListenerCount())
	defer slog.Info("stream: http listener disconnected")

	go feed(ctx, l, enc.stdin)

	if _, err := io.Copy(flushWriter{w, flusher}, enc.stdout); err != nil {
		slog.Debug("stream: http listener write", "error", err)
	}
	cancel()
}

// encoder is a running ffmpeg process turning s16le on stdin into MP3 on
// stdout.
type encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (h *HTTPHandler) start(ctx context.Context, f Format) (*encoder, error) {
	cmd := exec.CommandContext(ctx, h.ffmpeg, h.encoderArgs(f)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stream/http: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stream/http: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("stream/http: start %s: %w", h.ffmpeg, err)
	}
	return &encoder{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// feed writes every frame l receives to w as s16le bytes, closing w when
// the listener or ctx ends.
func feed(ctx context.Context, l *Listener, w io.WriteCloser) {
	defer w.Close()
	var buf []byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.Done():
			return
		case frame := <-l.C:
			buf = pcm.AppendLE(buf[:0], frame)
			if _, err := w.Write(buf); err != nil {
				return
			}
		}
	}
}

type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if n > 0 {
		fw.f.Flush()
	}
	return n, err
}
