package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/brainybay/assistant/pkg/audio"
	"github.com/brainybay/assistant/pkg/provider/voice"
)

const (
	// captureFrameSize is the number of samples per upstream chunk, at the
	// session input rate.
	captureFrameSize = 4096

	// voiceInputRate is the PCM rate sent upstream.
	voiceInputRate = 16000

	// meterInterval is how often the level meter decays toward silence.
	meterInterval = 50 * time.Millisecond

	// meterDecay is the per-tick smoothing factor applied to the level.
	meterDecay = 0.5
)

// voiceSession owns all the resources of one open voice session: the
// microphone capture handle, the playback output, the tracked playback
// sources, the open turn id, and the level meter. Teardown releases them in
// order: meter loop, microphone, output, tracked sources, stream handle.
type voiceSession struct {
	session voice.Session
	capture audio.CaptureDevice
	output  audio.Output
	frames  <-chan audio.Frame

	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	sources map[audio.Source]struct{}
	cursor  time.Duration
	turnID  string
	level   float64
}

// VoiceActive reports whether a voice session is currently open.
func (m *Manager) VoiceActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vs != nil
}

// VoiceLevel returns the smoothed input level in [0, 1] of the active voice
// session, or 0 when none is open. This is the visualizer feed.
func (m *Manager) VoiceLevel() float64 {
	m.mu.Lock()
	vs := m.vs
	m.mu.Unlock()
	if vs == nil {
		return 0
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.level
}

// StartVoice opens a voice session: acquires the microphone, opens the
// playback pipeline, and connects the streaming voice channel. Any failure
// releases everything already acquired and leaves the manager inactive.
// Returns ErrVoiceActive when a session is already open.
func (m *Manager) StartVoice(ctx context.Context) error {
	if m.voice == nil || m.capture == nil || m.newOutput == nil {
		return errors.New("assistant: voice mode is not configured")
	}

	m.mu.Lock()
	if m.vs != nil {
		m.mu.Unlock()
		return ErrVoiceActive
	}
	m.mu.Unlock()

	frames, err := m.capture.Start(ctx)
	if err != nil {
		return err
	}

	output, err := m.newOutput()
	if err != nil {
		m.capture.Stop()
		return err
	}

	start := m.now()
	session, err := m.voice.Connect(ctx, voice.SessionConfig{
		Instructions:     m.cfg.SystemPrompt,
		Voice:            m.cfg.Voice,
		InputSampleRate:  voiceInputRate,
		OutputSampleRate: output.SampleRate(),
	})
	m.metrics.VoiceConnectDuration.Record(ctx, m.now().Sub(start).Seconds())
	if err != nil {
		m.capture.Stop()
		output.Close()
		m.metrics.RecordProviderError(ctx, "voice", "connect")
		return err
	}

	vs := &voiceSession{
		session: session,
		capture: m.capture,
		output:  output,
		frames:  frames,
		done:    make(chan struct{}),
		sources: make(map[audio.Source]struct{}),
	}

	m.mu.Lock()
	if m.vs != nil {
		// Lost the race to a concurrent start.
		m.mu.Unlock()
		vs.teardown()
		return ErrVoiceActive
	}
	m.vs = vs
	m.mu.Unlock()

	m.metrics.ActiveVoiceSessions.Add(ctx, 1)

	go m.runVoiceCapture(vs)
	go m.runVoiceEvents(vs)
	go vs.runMeter()
	return nil
}

// StopVoice tears down the active voice session. Idempotent; a no-op when no
// session is open. After it returns no device or channel handle remains open.
func (m *Manager) StopVoice() {
	m.mu.Lock()
	vs := m.vs
	m.vs = nil
	m.mu.Unlock()
	if vs == nil {
		return
	}
	vs.teardown()
	m.metrics.ActiveVoiceSessions.Add(context.Background(), -1)
}

// ToggleVoice stops the active session, or starts one when none is open.
func (m *Manager) ToggleVoice(ctx context.Context) error {
	if m.VoiceActive() {
		m.StopVoice()
		return nil
	}
	return m.StartVoice(ctx)
}

// stopVoiceSession tears down vs only if it is still the active session.
// Used by the event loop so a mid-stream failure behaves like an explicit
// stop without racing a concurrent StopVoice.
func (m *Manager) stopVoiceSession(vs *voiceSession) {
	m.mu.Lock()
	if m.vs != vs {
		m.mu.Unlock()
		return
	}
	m.vs = nil
	m.mu.Unlock()
	vs.teardown()
	m.metrics.ActiveVoiceSessions.Add(context.Background(), -1)
}

// runVoiceCapture forwards microphone frames upstream: resample to the
// session input rate, chunk into fixed-size frames, quantize to 16-bit PCM,
// and send. Fire-and-forget; each chunk is sent independently.
func (m *Manager) runVoiceCapture(vs *voiceSession) {
	chunker := audio.NewFrameChunker(captureFrameSize)
	for {
		select {
		case <-vs.done:
			return
		case frame, ok := <-vs.frames:
			if !ok {
				// The device stopped on its own; release everything
				// like an explicit stop.
				slog.Warn("voice: capture device stopped")
				m.stopVoiceSession(vs)
				return
			}
			samples := frame.Samples
			if frame.SampleRate != voiceInputRate && frame.SampleRate > 0 {
				samples = audio.ResampleMono(samples, frame.SampleRate, voiceInputRate)
			}
			vs.bumpLevel(audio.RMS(samples))
			for _, chunk := range chunker.Push(samples) {
				if err := vs.session.SendAudio(audio.QuantizeFloat32(chunk)); err != nil {
					slog.Debug("voice: send audio failed", "err", err)
				}
			}
		}
	}
}

// runVoiceEvents consumes server events until the session ends. A closed
// events channel (clean or not) is treated identically to an explicit stop.
func (m *Manager) runVoiceEvents(vs *voiceSession) {
	for {
		select {
		case <-vs.done:
			return
		case ev, ok := <-vs.session.Events():
			if !ok {
				if err := vs.session.Err(); err != nil {
					slog.Warn("voice: session ended with error", "err", err)
					m.metrics.RecordProviderError(context.Background(), "voice", "stream")
				}
				m.stopVoiceSession(vs)
				return
			}
			m.handleVoiceEvent(vs, ev)
		}
	}
}

// handleVoiceEvent applies one server event to the session and transcript.
func (m *Manager) handleVoiceEvent(vs *voiceSession, ev voice.ServerEvent) {
	switch ev.Type {
	case voice.EventInterrupted:
		vs.interrupt()
		m.metrics.RecordInterruption(context.Background())
	case voice.EventTurnComplete:
		vs.clearTurn()
	case voice.EventInputTranscript:
		m.appendFragment(vs, RoleUser, ev.Transcript)
	case voice.EventOutputTranscript:
		m.appendFragment(vs, RoleAssistant, ev.Transcript)
	case voice.EventAudio:
		vs.schedule(audio.DecodePCM16(ev.Audio))
	}
}

// appendFragment applies one streamed transcript fragment: append to the last
// message when it belongs to the same role and is still the open turn,
// otherwise start a new message and make it the open turn. Late events for a
// torn-down session are dropped.
func (m *Manager) appendFragment(vs *voiceSession, role Role, text string) {
	if text == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vs != vs {
		// Session was torn down while this event was in flight.
		return
	}

	vs.mu.Lock()
	turnID := vs.turnID
	vs.mu.Unlock()

	if n := len(m.messages); n > 0 {
		last := &m.messages[n-1]
		if last.Role == role && turnID != "" && last.ID == turnID {
			last.Text += text
			return
		}
	}

	id := m.newID()
	m.messages = append(m.messages, ChatMessage{
		ID:        id,
		Role:      role,
		Text:      text,
		Timestamp: m.now(),
	})
	vs.mu.Lock()
	vs.turnID = id
	vs.mu.Unlock()
}

// schedule queues a decoded audio chunk for gapless playback: it starts at
// max(cursor, now) and the cursor advances by the chunk's duration. The
// source is tracked until natural completion so barge-in can stop it.
func (vs *voiceSession) schedule(samples []float32) {
	if len(samples) == 0 {
		return
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	select {
	case <-vs.done:
		return
	default:
	}

	start := vs.cursor
	if now := vs.output.Now(); now > start {
		start = now
	}
	src := vs.output.Play(samples, start)
	vs.cursor = start + audio.Duration(len(samples), vs.output.SampleRate())
	vs.sources[src] = struct{}{}

	go func() {
		select {
		case <-src.Done():
		case <-vs.done:
			return
		}
		vs.mu.Lock()
		delete(vs.sources, src)
		vs.mu.Unlock()
	}()
}

// interrupt handles barge-in: force-stop everything currently playing, clear
// the tracked set, reset the cursor to now so the next chunk starts
// immediately, and close the open turn. Safe to call repeatedly and a no-op
// once the session is torn down.
func (vs *voiceSession) interrupt() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	select {
	case <-vs.done:
		// Torn down; the output may already be closed.
		return
	default:
	}
	for src := range vs.sources {
		src.Stop()
	}
	clear(vs.sources)
	vs.cursor = vs.output.Now()
	vs.turnID = ""
}

// clearTurn closes the open turn without touching playback state.
func (vs *voiceSession) clearTurn() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.turnID = ""
}

// runMeter decays the input level toward silence between capture updates,
// smoothing the visualizer feed.
func (vs *voiceSession) runMeter() {
	ticker := time.NewTicker(meterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-vs.done:
			return
		case <-ticker.C:
			vs.mu.Lock()
			vs.level *= meterDecay
			vs.mu.Unlock()
		}
	}
}

// bumpLevel raises the level to the latest capture reading when louder.
func (vs *voiceSession) bumpLevel(rms float64) {
	vs.mu.Lock()
	if rms > vs.level {
		vs.level = rms
	}
	vs.mu.Unlock()
}

// teardown releases everything the session owns, in order: the meter and
// pipeline loops (via done), the microphone, the playback output, the tracked
// sources, and finally the stream handle. Idempotent.
func (vs *voiceSession) teardown() {
	vs.stopOnce.Do(func() {
		close(vs.done)

		if err := vs.capture.Stop(); err != nil {
			slog.Debug("voice: capture stop failed", "err", err)
		}
		if err := vs.output.Close(); err != nil {
			slog.Debug("voice: output close failed", "err", err)
		}

		vs.mu.Lock()
		for src := range vs.sources {
			src.Stop()
		}
		clear(vs.sources)
		vs.turnID = ""
		vs.level = 0
		vs.mu.Unlock()

		if err := vs.session.Close(); err != nil {
			slog.Debug("voice: session close failed", "err", err)
		}
	})
}
