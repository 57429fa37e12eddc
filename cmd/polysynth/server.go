package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/satindergrewal/polysynth/internal/config"
	"github.com/satindergrewal/polysynth/internal/input"
	"github.com/satindergrewal/polysynth/internal/stream"
)

type server struct {
	http   *http.Server
	webrtc *stream.WebRTCHandler
}

func newServer(cfg config.Config, s session, notes *input.HTTP, b *stream.Broadcaster) *server {
	mux := http.NewServeMux()

	var webrtcHandler *stream.WebRTCHandler
	if b != nil {
		webrtcHandler = stream.NewWebRTCHandler(b, cfg.OpusBitrate)
		mux.Handle("/stream", stream.NewHTTPHandler(b, cfg.FFmpeg, cfg.MP3Bitrate))
		mux.Handle("/offer", webrtcHandler)
	}
	if notes != nil {
		mux.Handle("/api/note", notes)
	}

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		status := map[string]any{
			"running":    s.Running(),
			"device":     cfg.Device,
			"instrument": cfg.Instrument,
			"source":     cfg.Source,
			"mix_policy": cfg.MixPolicy,
			"stats":      s.Stats(),
		}
		if p, ok := s.Params(); ok {
			status["params"] = map[string]any{
				"rate":        p.Rate,
				"channels":    p.Channels,
				"format":      p.Format.String(),
				"period_size": p.PeriodSize,
				"buffer_size": p.BufferSize,
			}
		}
		if b != nil {
			status["http_listeners"] = b.ListenerCount()
			status["webrtc_listeners"] = webrtcHandler.PeerCount()
			status["dropped_frames"] = b.Dropped()
		}
		json.NewEncoder(w).Encode(status)
	})

	return &server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		webrtc: webrtcHandler,
	}
}

// serve runs until close is called or ctx is cancelled.
func (s *server) serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.http.Close()
	}()
	slog.Info("http listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("http server error", "error", err)
	}
}

func (s *server) close() {
	if s.webrtc != nil {
		s.webrtc.Close()
	}
	s.http.Close()
}
