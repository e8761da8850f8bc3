// Package ingest receives the browser's media over WebRTC.
//
// The client captures microphone audio and camera frames and sends
// both over one peer connection: audio as an Opus track, frames as
// JPEG stills on a "frames" data channel. Signalling is a single
// offer/answer exchange over HTTP with full ICE gathering, so no
// trickle endpoint is needed. The decoded media is exposed through the
// audioio.Source and camera.Source interfaces the pipelines consume.
package ingest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"gopkg.in/hraban/opus.v2"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/audioio"
)

// opusSampleRate is the decode rate of WebRTC Opus audio.
const opusSampleRate = 48000

// maxOpusFrame is the largest decoded Opus frame: 120ms at 48kHz.
const maxOpusFrame = 5760

// ErrClosed is returned when handling an offer after Close.
var ErrClosed = errors.New("ingest: closed")

// Config holds ingest settings.
type Config struct {
	// STUNServers are the ICE servers offered to the browser.
	STUNServers []string

	// TargetSampleRate is the rate microphone audio is resampled to
	// before it reaches the pipelines.
	TargetSampleRate int
}

// DefaultConfig returns the production ingest configuration.
func DefaultConfig() Config {
	return Config{
		STUNServers:      []string{"stun:stun.l.google.com:19302"},
		TargetSampleRate: 16000,
	}
}

// Ingest owns the peer connection with the browser. A new offer
// replaces the previous connection: the service serves one user.
type Ingest struct {
	cfg Config

	mu     sync.Mutex
	pc     *webrtc.PeerConnection
	closed bool

	mic    *MicSource
	frames *FrameSource

	// OnConnected fires when the peer connection reaches connected.
	OnConnected func()
}

// New creates an ingest. Media sources exist immediately so the app
// can be wired before the browser connects; they simply produce
// nothing until a peer connection is up.
func New(cfg Config) *Ingest {
	if cfg.TargetSampleRate == 0 {
		cfg.TargetSampleRate = 16000
	}
	return &Ingest{
		cfg:    cfg,
		mic:    newMicSource(cfg.TargetSampleRate),
		frames: NewFrameSource(),
	}
}

// Mic returns the microphone source fed by the browser's audio track.
func (i *Ingest) Mic() *MicSource {
	return i.mic
}

// Frames returns the camera source fed by the frames data channel.
func (i *Ingest) Frames() *FrameSource {
	return i.frames
}

// HandleOffer answers one browser offer. Any previous peer connection
// is torn down first.
func (i *Ingest) HandleOffer(offerSDP string) (string, error) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return "", ErrClosed
	}
	old := i.pc
	i.pc = nil
	i.mu.Unlock()

	if old != nil {
		old.Close()
	}

	servers := make([]webrtc.ICEServer, 0, len(i.cfg.STUNServers))
	for _, url := range i.cfg.STUNServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return "", fmt.Errorf("ingest: peer connection: %w", err)
	}

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		return "", fmt.Errorf("ingest: audio transceiver: %w", err)
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info("ingest track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeAudio {
			go i.readAudioTrack(track)
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != "frames" {
			return
		}
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			i.frames.handleMessage(msg)
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info("ingest connection state", "state", state.String())
		if state == webrtc.PeerConnectionStateConnected && i.OnConnected != nil {
			i.OnConnected()
		}
	})

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return "", fmt.Errorf("ingest: set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return "", fmt.Errorf("ingest: create answer: %w", err)
	}

	// Gather all ICE candidates before answering so the browser gets a
	// complete SDP and no trickle endpoint is needed.
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return "", fmt.Errorf("ingest: set local description: %w", err)
	}
	<-gathered

	i.mu.Lock()
	i.pc = pc
	i.mu.Unlock()

	return pc.LocalDescription().SDP, nil
}

// readAudioTrack decodes the Opus track into microphone chunks.
// Decoding at one channel downmixes stereo captures; the decoded
// 48kHz PCM is resampled to the pipeline rate.
func (i *Ingest) readAudioTrack(track *webrtc.TrackRemote) {
	decoder, err := opus.NewDecoder(opusSampleRate, 1)
	if err != nil {
		log.Error("ingest: opus decoder", "error", err)
		return
	}

	frameBuf := make([]int16, maxOpusFrame)
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			return // track closed
		}
		i.decodePacket(decoder, packet, frameBuf)
	}
}

// decodePacket decodes one RTP packet's Opus payload and pushes the
// resampled PCM to the microphone source. Empty payloads (DTX silence)
// are skipped.
func (i *Ingest) decodePacket(decoder *opus.Decoder, packet *rtp.Packet, frameBuf []int16) {
	if len(packet.Payload) == 0 {
		return
	}

	n, err := decoder.Decode(packet.Payload, frameBuf)
	if err != nil {
		log.Debug("ingest: opus decode failed", "error", err)
		return
	}

	pcm := make([]int16, n)
	copy(pcm, frameBuf[:n])
	i.mic.push(audioio.Resample(pcm, opusSampleRate, i.cfg.TargetSampleRate))
}

// Close tears down the peer connection and both sources.
func (i *Ingest) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	pc := i.pc
	i.pc = nil
	i.mu.Unlock()

	if pc != nil {
		pc.Close()
	}
	i.mic.Close()
	return i.frames.Close()
}
