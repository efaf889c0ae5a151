package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/irisvox/irisvox/internal/observe"
	"github.com/irisvox/irisvox/internal/playback"
	"github.com/irisvox/irisvox/internal/transcript"
	"github.com/irisvox/irisvox/pkg/location"
	"github.com/irisvox/irisvox/pkg/media"
	"github.com/irisvox/irisvox/pkg/memlog"
	"github.com/irisvox/irisvox/pkg/pcm"
	"github.com/irisvox/irisvox/pkg/transport"
)

// Config holds the per-session parameters of an [Engine].
type Config struct {
	// InputSampleRate is the microphone capture rate in Hz.
	InputSampleRate int

	// OutputSampleRate is the playback rate in Hz.
	OutputSampleRate int

	// FrameRate is the camera capture rate in frames per second.
	FrameRate float64

	// Voice selects the assistant's synthetic voice.
	Voice string

	// Persona is the system instruction text sent to the transport.
	Persona string

	// ConnectTimeout bounds transport connection establishment.
	ConnectTimeout time.Duration

	// TranscriptCap bounds the in-memory transcript log.
	TranscriptCap int

	// MemoryCap bounds the persisted assistant memory log.
	MemoryCap int
}

// Deps are the collaborators an [Engine] orchestrates.
type Deps struct {
	// Transport establishes the bidirectional session. Required.
	Transport transport.Transport

	// Microphone is the audio capture device. Required.
	Microphone media.Microphone

	// Camera is the video capture device. When nil, the video pipeline is
	// disabled.
	Camera media.Camera

	// Playback schedules inbound audio buffers. Required.
	Playback *playback.Scheduler

	// Store persists the assistant memory log. Required.
	Store memlog.Store

	// Location provides the optional last-known-location annotation appended
	// to the persona. May be nil.
	Location location.Source

	// Metrics records instrumentation. Defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// Engine owns the connection state machine for exactly one assistant session
// at a time. It wires the capture devices through the PCM codec into the
// transport, and routes inbound transport events to the playback scheduler,
// the transcript aggregator, and the memory store.
//
// All methods are safe for concurrent use; inbound events are dispatched by a
// single goroutine in strict arrival order.
type Engine struct {
	cfg       Config
	transport transport.Transport
	mic       media.Microphone
	cam       media.Camera
	playback  *playback.Scheduler
	store     memlog.Store
	loc       location.Source
	metrics   *observe.Metrics
	log       *slog.Logger

	mu         sync.Mutex
	state      State
	lastErr    string
	transcript []memlog.Entry
	sess       transport.Session
	cancel     context.CancelFunc
	agg        *transcript.Aggregator
	sessionID  string
	startedAt  time.Time
	stopped    bool // guards double teardown for the current session
}

// NewEngine validates deps and returns a disconnected Engine.
func NewEngine(cfg Config, d Deps) (*Engine, error) {
	if d.Transport == nil {
		return nil, fmt.Errorf("session: transport is required")
	}
	if d.Microphone == nil {
		return nil, fmt.Errorf("session: microphone is required")
	}
	if d.Playback == nil {
		return nil, fmt.Errorf("session: playback scheduler is required")
	}
	if d.Store == nil {
		return nil, fmt.Errorf("session: memory store is required")
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 1
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}
	if cfg.TranscriptCap <= 0 {
		cfg.TranscriptCap = 15
	}
	if cfg.MemoryCap <= 0 {
		cfg.MemoryCap = 50
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		transport: d.Transport,
		mic:       d.Microphone,
		cam:       d.Camera,
		playback:  d.Playback,
		store:     d.Store,
		loc:       d.Location,
		metrics:   metrics,
		log:       log,
		state:     StateDisconnected,
	}, nil
}

// Start acquires the capture devices, opens the transport connection, and
// launches the capture and dispatch loops. Valid only from
// [StateDisconnected]; otherwise it returns [ErrAlreadyActive].
//
// Device and connect failures are terminal for this attempt: the engine
// surfaces the error via [Engine.LastError] and settles back to
// [StateDisconnected] without retrying. A [Stop] issued while the connection
// attempt is still in flight aborts the attempt; Start then returns
// [ErrStopped] after releasing everything the attempt acquired.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateDisconnected {
		e.mu.Unlock()
		return ErrAlreadyActive
	}
	e.state = StateConnecting
	e.lastErr = ""
	e.transcript = nil // one transcript log per session
	e.agg = transcript.New()
	e.sessionID = uuid.NewString()
	e.stopped = false
	id := e.sessionID
	e.mu.Unlock()

	log := e.log.With("session_id", id)
	log.Info("starting session",
		"input_rate", e.cfg.InputSampleRate,
		"output_rate", e.cfg.OutputSampleRate,
		"frame_rate", e.cfg.FrameRate,
	)

	blocks, err := e.mic.Start(ctx)
	if err != nil {
		return e.failStart(log, fmt.Errorf("%w: microphone: %v", ErrPermission, err))
	}

	persona := e.cfg.Persona
	if e.loc != nil {
		if coords, ok := e.loc.GetOnce(ctx); ok {
			persona = fmt.Sprintf("%s\n\nThe user's last known location is %s.", persona, coords)
		}
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancelConnect()

	begin := time.Now()
	sess, err := e.transport.Connect(connectCtx, transport.SessionConfig{
		InputSampleRate:     e.cfg.InputSampleRate,
		OutputSampleRate:    e.cfg.OutputSampleRate,
		Voice:               e.cfg.Voice,
		Instructions:        persona,
		InputTranscription:  true,
		OutputTranscription: true,
	})
	e.metrics.ConnectDuration.Record(ctx, time.Since(begin).Seconds())
	if err != nil {
		if cerr := e.mic.Close(); cerr != nil {
			log.Debug("microphone close during failed start", "error", cerr)
		}
		return e.failStart(log, fmt.Errorf("%w: %v", ErrTransportOpen, err))
	}

	e.mu.Lock()
	if e.stopped {
		// Stop raced with the connect. The teardown already ran against the
		// pre-connect resources, so release what the connect produced and
		// leave the engine where Stop settled it.
		e.mu.Unlock()
		if cerr := sess.Close(); cerr != nil {
			log.Debug("transport close during aborted start", "error", cerr)
		}
		if cerr := e.mic.Close(); cerr != nil {
			log.Debug("microphone close during aborted start", "error", cerr)
		}
		log.Info("session start aborted by stop")
		return ErrStopped
	}
	runCtx, cancel := context.WithCancel(context.Background())
	e.state = StateConnected
	e.sess = sess
	e.cancel = cancel
	e.startedAt = time.Now()
	e.mu.Unlock()

	e.metrics.ActiveSessions.Add(ctx, 1)
	log.Info("session connected", "connect_duration", time.Since(begin))

	g := &errgroup.Group{}
	g.Go(func() error { e.dispatchLoop(runCtx, log, sess); return nil })
	g.Go(func() error { e.audioLoop(runCtx, log, sess, blocks); return nil })
	if e.cam != nil {
		g.Go(func() error { e.videoLoop(runCtx, log, sess); return nil })
	}
	go func() {
		_ = g.Wait()
		log.Debug("session loops finished")
	}()

	return nil
}

// failStart records err, passes through [StateError], and settles the engine
// back to [StateDisconnected].
func (e *Engine) failStart(log *slog.Logger, err error) error {
	log.Error("session start failed", "error", err)
	e.mu.Lock()
	e.state = StateError
	e.lastErr = err.Error()
	e.state = StateDisconnected
	e.mu.Unlock()
	return err
}

// Stop tears the session down: it closes the transport, cancels both capture
// loops, force-stops all scheduled playback, releases the capture devices,
// and settles the engine in [StateDisconnected].
//
// Stop is idempotent and safe to call from any state, including from within
// the dispatch loop on an error or close event. Teardown errors are logged
// at debug level and otherwise discarded.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.stopped || (e.state == StateDisconnected && e.sess == nil) {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	sess := e.sess
	cancel := e.cancel
	started := e.startedAt
	wasLive := e.state == StateConnected || e.state == StateError
	e.sess = nil
	e.cancel = nil
	e.state = StateDisconnected
	e.mu.Unlock()

	log := e.log.With("session_id", e.SessionID())

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		if err := sess.Close(); err != nil {
			log.Debug("transport close during teardown", "error", err)
		}
	}
	e.playback.Interrupt()
	if err := e.mic.Close(); err != nil {
		log.Debug("microphone close during teardown", "error", err)
	}
	if e.cam != nil {
		if err := e.cam.Close(); err != nil {
			log.Debug("camera close during teardown", "error", err)
		}
	}

	if wasLive {
		ctx := context.Background()
		e.metrics.ActiveSessions.Add(ctx, -1)
		e.metrics.SessionDuration.Record(ctx, time.Since(started).Seconds())
		log.Info("session stopped", "duration", time.Since(started))
	}
	return nil
}

// ─── Inbound dispatch ─────────────────────────────────────────────────────────

// dispatchLoop consumes the transport event stream and routes each event in
// arrival order. It exits when the stream closes or ctx is cancelled.
//
// A channel closure without a preceding close event still tears the session
// down, so the engine never stays connected past the end of the stream even
// if the transport skipped its final event.
func (e *Engine) dispatchLoop(ctx context.Context, log *slog.Logger, sess transport.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.Events():
			if !ok {
				_ = e.Stop()
				return
			}
			e.dispatch(ctx, log, ev)
		}
	}
}

// dispatch handles a single inbound event.
func (e *Engine) dispatch(ctx context.Context, log *slog.Logger, ev transport.Event) {
	switch ev.Kind {
	case transport.EventAudio:
		raw, err := pcm.Decode(ev.Data)
		if err != nil {
			log.Debug("dropping undecodable audio event", "error", err)
			return
		}
		buf, err := pcm.DecodeAudioData(raw, e.cfg.OutputSampleRate, 1)
		if err != nil {
			log.Debug("dropping unplayable audio event", "error", err)
			return
		}
		if _, err := e.playback.Enqueue(buf); err != nil {
			log.Debug("playback enqueue failed", "error", err)
			return
		}
		e.metrics.PlaybackBuffers.Add(ctx, 1)

	case transport.EventInputTranscription:
		e.appendFragment(memlog.RoleUser, ev.Text)

	case transport.EventOutputTranscription:
		e.appendFragment(memlog.RoleAssistant, ev.Text)

	case transport.EventTurnComplete:
		e.completeTurn(ctx, log)

	case transport.EventInterrupted:
		e.playback.Interrupt()
		e.metrics.Interruptions.Add(ctx, 1)
		log.Debug("playback interrupted by barge-in")

	case transport.EventError:
		e.metrics.TransportErrors.Add(ctx, 1)
		e.mu.Lock()
		e.state = StateError
		if ev.Err != nil {
			e.lastErr = ev.Err.Error()
		} else {
			e.lastErr = "transport error"
		}
		e.mu.Unlock()
		log.Error("transport error, tearing down session", "error", ev.Err)
		_ = e.Stop()

	case transport.EventClosed:
		log.Info("transport closed by remote")
		_ = e.Stop()
	}
}

// appendFragment forwards a partial transcription fragment to the aggregator.
func (e *Engine) appendFragment(role memlog.Role, text string) {
	e.mu.Lock()
	agg := e.agg
	e.mu.Unlock()
	if agg != nil {
		agg.Append(role, text)
	}
}

// completeTurn flushes the aggregator into the transcript log and persists
// assistant utterances to the memory store. Store failures keep the session
// alive; the entry is lost but the pipeline continues.
func (e *Engine) completeTurn(ctx context.Context, log *slog.Logger) {
	e.mu.Lock()
	agg := e.agg
	e.mu.Unlock()
	if agg == nil {
		return
	}

	entries := agg.Flush()
	if len(entries) == 0 {
		return
	}

	e.mu.Lock()
	for _, entry := range entries {
		e.transcript = append(e.transcript, entry)
	}
	if over := len(e.transcript) - e.cfg.TranscriptCap; over > 0 {
		e.transcript = e.transcript[over:]
	}
	e.mu.Unlock()

	for _, entry := range entries {
		if entry.Role != memlog.RoleAssistant {
			continue
		}
		if _, err := e.store.AppendCapped(ctx, entry, e.cfg.MemoryCap); err != nil {
			log.Warn("memory store append failed", "error", err)
		}
	}
}

// ─── Outbound pipelines ───────────────────────────────────────────────────────

// audioLoop encodes each capture block and submits it to the transport.
// Sends are fire-and-forget: a failed block is dropped and the loop moves on.
func (e *Engine) audioLoop(ctx context.Context, log *slog.Logger, sess transport.Session, blocks <-chan media.Block) {
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-blocks:
			if !ok {
				return
			}
			chunk := transport.Chunk{
				Data:     pcm.Encode(block.Samples),
				MIMEType: fmt.Sprintf("audio/pcm;rate=%d", block.SampleRate),
			}
			if err := sess.SendMedia(chunk); err != nil {
				e.metrics.RecordDroppedSend(ctx, "audio")
				log.Debug("audio chunk dropped", "error", err)
				continue
			}
			e.metrics.AudioChunksSent.Add(ctx, 1)
		}
	}
}

// videoLoop grabs a camera frame once per tick and submits it to the
// transport. Capture and send failures are dropped without stopping the
// timer.
func (e *Engine) videoLoop(ctx context.Context, log *slog.Logger, sess transport.Session) {
	period := time.Duration(float64(time.Second) / e.cfg.FrameRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := e.cam.GrabFrame(ctx)
			if err != nil {
				log.Debug("frame capture failed", "error", err)
				continue
			}
			chunk := transport.Chunk{
				Data:     base64.StdEncoding.EncodeToString(frame),
				MIMEType: "image/jpeg",
			}
			if err := sess.SendMedia(chunk); err != nil {
				e.metrics.RecordDroppedSend(ctx, "video")
				log.Debug("video frame dropped", "error", err)
				continue
			}
			e.metrics.VideoFramesSent.Add(ctx, 1)
		}
	}
}

// ─── Observable state ─────────────────────────────────────────────────────────

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the most recent terminal error message, or the empty
// string. Cleared on every Start.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// SessionID returns the identifier of the current (or most recent) session.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Transcript returns a snapshot of the transcript log, oldest first.
func (e *Engine) Transcript() []memlog.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]memlog.Entry, len(e.transcript))
	copy(out, e.transcript)
	return out
}

// Memory loads the persisted assistant memory log, newest first.
func (e *Engine) Memory(ctx context.Context) ([]memlog.Entry, error) {
	return e.store.Load(ctx)
}
