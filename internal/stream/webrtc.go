package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"
)

// DefaultOpusBitrate is the encoder bitrate for WebRTC peers.
const DefaultOpusBitrate = 128000

// maxOpusPacket is the largest packet libopus produces for one frame.
const maxOpusPacket = 4000

var (
	errNotStarted = errors.New("stream/webrtc: synth not started")
	errBadOffer   = errors.New("stream/webrtc: bad offer")
)

// WebRTCHandler answers SDP offers with an Opus track carrying the
// broadcast. Each peer gets its own encoder and broadcaster listener.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	bitrate     int

	mu    sync.Mutex
	peers map[*webrtc.PeerConnection]*Listener
}

// NewWebRTCHandler creates a WebRTC stream handler. A bitrate of zero uses
// DefaultOpusBitrate.
func NewWebRTCHandler(b *Broadcaster, bitrate int) *WebRTCHandler {
	if bitrate <= 0 {
		bitrate = DefaultOpusBitrate
	}
	return &WebRTCHandler{
		broadcaster: b,
		bitrate:     bitrate,
		peers:       make(map[*webrtc.PeerConnection]*Listener),
	}
}

// PeerCount returns the number of connected peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}
	answer, err := h.answer(offer)
	switch {
	case errors.Is(err, errNotStarted):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, errBadOffer):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("stream: webrtc answer", "error", err)
		http.Error(w, "negotiation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(answer)
}

// answer sets up a peer connection for offer and starts streaming to it
// once ICE gathering is complete.
func (h *WebRTCHandler) answer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	format, ok := h.broadcaster.Format()
	if !ok {
		return nil, errNotStarted
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, fmt.Errorf("stream/webrtc: peer connection: %w", err)
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"polysynth",
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("stream/webrtc: track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return nil, fmt.Errorf("stream/webrtc: add track: %w", err)
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("%w: %v", errBadOffer, err)
	}
	desc, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("stream/webrtc: create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		pc.Close()
		return nil, fmt.Errorf("stream/webrtc: local description: %w", err)
	}
	<-gathered

	l := h.broadcaster.Subscribe()
	h.mu.Lock()
	h.peers[pc] = l
	n := len(h.peers)
	h.mu.Unlock()
	slog.Info("stream: webrtc peer connected", "peers", n)

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			if h.drop(pc) {
				slog.Info("stream: webrtc peer disconnected", "peers", h.PeerCount())
			}
		}
	})
	go h.send(l, track, format)

	return pc.LocalDescription(), nil
}

// send encodes every frame l receives and writes it to track until the
// listener is unsubscribed or the track fails.
func (h *WebRTCHandler) send(l *Listener, track *webrtc.TrackLocalStaticSample, format Format) {
	enc, err := opus.NewEncoder(format.Rate, format.Channels, opus.AppAudio)
	if err != nil {
		slog.Error("stream: opus encoder", "error", err)
		return
	}
	if err := enc.SetBitrate(h.bitrate); err != nil {
		slog.Warn("stream: opus bitrate", "bitrate", h.bitrate, "error", err)
	}

	packet := make([]byte, maxOpusPacket)
	for {
		var frame []int16
		select {
		case <-l.Done():
			return
		case frame = <-l.C:
		}
		n, err := enc.Encode(frame, packet)
		if err != nil {
			slog.Warn("stream: opus encode", "error", err)
			continue
		}
		if err := track.WriteSample(media.Sample{Data: packet[:n], Duration: FrameDuration}); err != nil {
			return
		}
	}
}

// drop forgets pc, releases its listener and closes it. It reports
// whether pc was still registered.
func (h *WebRTCHandler) drop(pc *webrtc.PeerConnection) bool {
	h.mu.Lock()
	l, ok := h.peers[pc]
	delete(h.peers, pc)
	h.mu.Unlock()
	if !ok {
		return false
	}
	h.broadcaster.Unsubscribe(l)
	pc.Close()
	return true
}

// Close disconnects every peer.
func (h *WebRTCHandler) Close() {
	h.mu.Lock()
	pcs := make([]*webrtc.PeerConnection, 0, len(h.peers))
	for pc := range h.peers {
		pcs = append(pcs, pc)
	}
	h.mu.Unlock()
	for _, pc := range pcs {
		h.drop(pc)
	}
}
