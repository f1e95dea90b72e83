// Package listen owns the continuous listening session: a state machine
// wrapped around an external continuous-recognition engine that unilaterally
// terminates its own sessions, throws transient errors, and offers no durable
// session concept.
//
// A [Controller] keeps one logical session alive across arbitrarily many
// underlying engine sessions. Restarts — whether triggered by the engine
// ending on its own, by a recoverable error, or proactively by the silence
// and segment watchdogs — are invisible to the caller except through the
// continuity of transcript updates. The caller sees a single session with a
// single end callback.
//
// All controller state is guarded by one mutex. Engine callbacks and timer
// callbacks are the only entry points besides Start and Stop; every one of
// them re-checks the controller's own active flag and the engine generation
// before acting, so stale timers and late events from torn-down engines are
// no-ops. Caller callbacks are always invoked outside the lock.
package listen

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LiorLearning/social-story/pkg/recog"
)

// State is the controller's lifecycle state.
type State int

const (
	// StateIdle means no logical session exists.
	StateIdle State = iota

	// StateStarting means Start was accepted and the engine is spinning up.
	StateStarting

	// StateListening means the engine is live and delivering results.
	StateListening

	// StateRestarting means the underlying engine is being torn down and
	// recreated while the logical session stays alive.
	StateRestarting

	// StateStopping means Stop was requested and the controller is waiting
	// for the engine's end event.
	StateStopping

	// StateStopped means the logical session ended by explicit Stop.
	StateStopped

	// StateFailed means a permanent error terminated the session. A new
	// Start call is required to try again.
	StateFailed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateRestarting:
		return "restarting"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// ErrSessionActive is returned by Start when a logical session is already
// running on this controller.
var ErrSessionActive = errors.New("listen: session already active")

// Default tuning values, applied by NewController for zero config fields.
const (
	// defaultSilenceThreshold is how long after the last heard speech the
	// silence watchdog forces an engine restart.
	defaultSilenceThreshold = 3 * time.Second

	// defaultMaxSegment caps one underlying engine session. Engines enforce
	// their own undocumented hard limit; restarting first keeps the
	// listening indicator truthful.
	defaultMaxSegment = 25 * time.Second

	// defaultWatchdogInterval is how often the silence watchdog checks.
	defaultWatchdogInterval = time.Second

	// defaultRestartDelay is the backoff before restarting after a generic
	// abort or engine-initiated end.
	defaultRestartDelay = 300 * time.Millisecond

	// defaultNetworkRestartDelay is the longer backoff for network-class
	// errors.
	defaultNetworkRestartDelay = time.Second

	// defaultUnknownRetryWindow bounds how long the single retry of an
	// unknown error code has to reach the listening state before the error
	// is escalated to permanent.
	defaultUnknownRetryWindow = 5 * time.Second
)

// Callbacks is the upward event surface of a Controller. All fields are
// optional. Callbacks are invoked outside the controller lock but from the
// controller's event flow — they must not block.
type Callbacks struct {
	// OnStateChange fires on every state transition.
	OnStateChange func(State)

	// OnTranscript fires after every result batch with the merged
	// committed+interim transcript.
	OnTranscript func(Snapshot)

	// OnEnd fires exactly once per logical session, when the controller has
	// become inactive — whether by Stop or by a permanent failure. Engine
	// restarts do not fire it.
	OnEnd func()

	// OnFatal fires at most once per logical session with the engine error
	// code that terminated it. Recoverable errors never reach this.
	OnFatal func(code string)

	// OnRestart fires on every underlying engine restart with the reason
	// ("engine-end", "silence", "max-segment", "error:<code>"). Intended
	// for observability; restarts are otherwise invisible to callers.
	OnRestart func(reason string)
}

// ControllerConfig configures a [Controller].
type ControllerConfig struct {
	// Factory creates underlying engine sessions. Required.
	Factory recog.Factory

	// Language is the BCP-47 recognition language. Default "en-US".
	Language string

	// SilenceThreshold, MaxSegment, WatchdogInterval, RestartDelay,
	// NetworkRestartDelay, and UnknownRetryWindow tune the restart policy.
	// Zero values take the package defaults.
	SilenceThreshold    time.Duration
	MaxSegment          time.Duration
	WatchdogInterval    time.Duration
	RestartDelay        time.Duration
	NetworkRestartDelay time.Duration
	UnknownRetryWindow  time.Duration

	// Callbacks receives the controller's upward events.
	Callbacks Callbacks
}

// SessionInfo describes the logical session. Zero value when idle.
type SessionInfo struct {
	// SessionID uniquely identifies the logical session, spanning all
	// underlying engine restarts.
	SessionID string

	// StartedAt is when the logical session began.
	StartedAt time.Time

	// LastSpeechAt is when recognized audio activity was last observed.
	LastSpeechAt time.Time

	// HasReceivedSpeech distinguishes "never heard anything yet" from
	// "heard something, then went quiet".
	HasReceivedSpeech bool
}

// Controller keeps one logical listening session alive over an unreliable
// continuous-recognition engine. All exported methods are safe for
// concurrent use.
type Controller struct {
	cfg ControllerConfig
	acc *Accumulator

	mu                sync.Mutex
	active            bool
	state             State
	info              SessionInfo
	engine            recog.Engine
	engineGen         int
	engineRunning     bool
	pendingStart      bool
	segmentStartedAt  time.Time
	restartTimer      *time.Timer
	proactiveTimer    *time.Timer
	unknownDeadline   *time.Timer
	unknownRetried    bool
	endFired          bool
	fatalFired        bool
	watchdogStop      chan struct{}
}

// NewController creates a Controller. cfg.Factory is required; zero tuning
// fields take the package defaults.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("listen: controller requires an engine factory")
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = defaultSilenceThreshold
	}
	if cfg.MaxSegment <= 0 {
		cfg.MaxSegment = defaultMaxSegment
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = defaultWatchdogInterval
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = defaultRestartDelay
	}
	if cfg.NetworkRestartDelay <= 0 {
		cfg.NetworkRestartDelay = defaultNetworkRestartDelay
	}
	if cfg.UnknownRetryWindow <= 0 {
		cfg.UnknownRetryWindow = defaultUnknownRetryWindow
	}
	return &Controller{
		cfg:   cfg,
		acc:   NewAccumulator(),
		state: StateIdle,
	}, nil
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Info returns metadata about the logical session.
func (c *Controller) Info() SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Transcript returns the current merged transcript.
func (c *Controller) Transcript() Snapshot {
	return c.acc.Snapshot()
}

// ResetTranscript clears the accumulated transcript, for when the target
// passage changes mid-session.
func (c *Controller) ResetTranscript() {
	c.acc.Reset()
}

// Start begins a new logical listening session. Returns [ErrSessionActive]
// if one is already running.
//
// If a previous session's engine has not yet reported its end, the fresh
// engine start is deferred until it does — the engine does not support
// overlapping sessions. A still-pending end callback from that previous
// session fires during this call, before the new session's events.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrSessionActive
	}

	var after []func()
	if c.state == StateStopping {
		// The previous session is still waiting for its engine's end event.
		// Close it out now so its end callback is not lost.
		c.fireEndLocked(&after)
	}

	now := time.Now()
	c.active = true
	c.endFired = false
	c.fatalFired = false
	c.unknownRetried = false
	c.pendingStart = false
	c.info = SessionInfo{
		SessionID: uuid.NewString(),
		StartedAt: now,
	}
	c.acc.Reset()

	stop := make(chan struct{})
	c.watchdogStop = stop
	go c.watchdogLoop(stop)

	c.setStateLocked(StateStarting, &after)

	if c.engineRunning {
		// A stale engine is still winding down. Ask it to stop (again) and
		// let its end event trigger the fresh start; the deferred retry
		// below covers an engine whose end event already fired.
		old := c.engine
		c.pendingStart = true
		c.armRestartTimerLocked(c.cfg.RestartDelay)
		after = append(after, old.Stop)
		slog.Debug("listen: deferring start until previous engine ends",
			"session_id", c.info.SessionID)
	} else {
		eng := c.prepareEngineLocked()
		after = append(after, func() { c.launchEngine(eng) })
	}

	sessionID := c.info.SessionID
	c.mu.Unlock()
	run(after)

	slog.Info("listen: session started", "session_id", sessionID)
	return nil
}

// Stop ends the logical session. Idempotent: extra calls are no-ops. Stop
// returns without waiting for the engine's end event; the OnEnd callback
// reports actual completion. After Stop, no restart will ever be scheduled
// for this session — late engine events and stale timers are ignored.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}

	c.active = false
	c.pendingStart = false
	c.cancelTimersLocked()
	c.stopWatchdogLocked()

	var after []func()
	sessionID := c.info.SessionID
	if c.engineRunning {
		c.setStateLocked(StateStopping, &after)
		eng := c.engine
		after = append(after, eng.Stop)
	} else {
		c.setStateLocked(StateStopped, &after)
		c.fireEndLocked(&after)
	}
	c.mu.Unlock()
	run(after)

	slog.Info("listen: session stop requested", "session_id", sessionID)
}

// prepareEngineLocked creates the next underlying engine session and arms its
// proactive-restart timer. The caller must invoke launchEngine with the
// returned engine after releasing the lock.
func (c *Controller) prepareEngineLocked() recog.Engine {
	c.engineGen++
	gen := c.engineGen

	eng := c.cfg.Factory(recog.Config{
		Continuous:     true,
		InterimResults: true,
		Language:       c.cfg.Language,
		Handlers: recog.Handlers{
			OnStart:  func() { c.handleEngineStart(gen) },
			OnResult: func(results []recog.Result) { c.handleEngineResults(gen, results) },
			OnError:  func(code string) { c.handleEngineError(gen, code) },
			OnEnd:    func() { c.handleEngineEnd(gen) },
		},
	})

	c.engine = eng
	c.engineRunning = true
	c.pendingStart = false
	c.segmentStartedAt = time.Now()

	if c.proactiveTimer != nil {
		c.proactiveTimer.Stop()
	}
	c.proactiveTimer = time.AfterFunc(c.cfg.MaxSegment, func() { c.handleProactive(gen) })

	return eng
}

// launchEngine starts eng outside the lock. A synchronous start failure is
// routed through the error classifier like any other engine error.
func (c *Controller) launchEngine(eng recog.Engine) {
	if err := eng.Start(); err != nil {
		c.mu.Lock()
		gen := c.engineGen
		c.mu.Unlock()
		slog.Warn("listen: engine start failed", "err", err)
		c.handleEngineError(gen, "start-failure")
	}
}

// handleEngineStart runs on the engine's start event.
func (c *Controller) handleEngineStart(gen int) {
	c.mu.Lock()
	if !c.active || gen != c.engineGen {
		c.mu.Unlock()
		return
	}

	var after []func()
	c.segmentStartedAt = time.Now()
	c.unknownRetried = false
	if c.unknownDeadline != nil {
		c.unknownDeadline.Stop()
		c.unknownDeadline = nil
	}
	c.setStateLocked(StateListening, &after)
	c.mu.Unlock()
	run(after)
}

// handleEngineResults runs on every engine result batch.
func (c *Controller) handleEngineResults(gen int, results []recog.Result) {
	c.mu.Lock()
	if !c.active || gen != c.engineGen {
		c.mu.Unlock()
		return
	}

	now := time.Now()
	for _, r := range results {
		if r.IsFinal {
			c.acc.OnFinal(r.Transcript)
		} else {
			c.acc.OnInterim(r.Transcript)
		}
		c.info.LastSpeechAt = now
		c.info.HasReceivedSpeech = true
	}
	snap := c.acc.Snapshot()
	cb := c.cfg.Callbacks.OnTranscript
	c.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// handleEngineError runs on an engine error event. Raw codes are classified
// here and never propagate further.
func (c *Controller) handleEngineError(gen int, code string) {
	c.mu.Lock()
	if !c.active || gen != c.engineGen {
		c.mu.Unlock()
		return
	}

	var after []func()
	switch class := ClassifyError(code); class {
	case ErrorRecoverable:
		delay := c.cfg.RestartDelay
		if networkClass(code) {
			delay = c.cfg.NetworkRestartDelay
		}
		slog.Debug("listen: recoverable engine error, restarting",
			"session_id", c.info.SessionID, "code", code, "delay", delay)
		c.scheduleRestartLocked(delay, "error:"+code, &after)

	case ErrorPermanent:
		slog.Warn("listen: permanent engine error",
			"session_id", c.info.SessionID, "code", code)
		c.failLocked(code, &after)

	case ErrorUnknown:
		if c.unknownRetried {
			slog.Warn("listen: unknown engine error persisted after retry",
				"session_id", c.info.SessionID, "code", code)
			c.failLocked(code, &after)
			break
		}
		c.unknownRetried = true
		slog.Debug("listen: unknown engine error, retrying once",
			"session_id", c.info.SessionID, "code", code)
		c.scheduleRestartLocked(c.cfg.RestartDelay, "error:"+code, &after)

		// Escalate if the retry does not reach the listening state in time.
		if c.unknownDeadline != nil {
			c.unknownDeadline.Stop()
		}
		c.unknownDeadline = time.AfterFunc(c.cfg.UnknownRetryWindow, func() {
			c.handleUnknownDeadline(code)
		})
	}
	c.mu.Unlock()
	run(after)
}

// handleEngineEnd runs when an underlying engine session reports it is over.
func (c *Controller) handleEngineEnd(gen int) {
	c.mu.Lock()
	var after []func()

	if gen != c.engineGen {
		// A previously torn-down engine finally ended. Its only remaining
		// significance is unblocking a deferred start, and only while no
		// replacement engine is already live.
		if c.active && c.pendingStart && !c.engineRunning {
			c.pendingStart = false
			c.cancelRestartTimerLocked()
			eng := c.prepareEngineLocked()
			after = append(after, func() { c.launchEngine(eng) })
		}
		c.mu.Unlock()
		run(after)
		return
	}

	c.engineRunning = false

	if !c.active {
		// Logical stop (or failure) completing; a late end event after that
		// must not resurrect anything.
		if c.state == StateStopping {
			c.setStateLocked(StateStopped, &after)
		}
		c.fireEndLocked(&after)
		c.mu.Unlock()
		run(after)
		return
	}

	switch c.state {
	case StateStarting, StateListening:
		// The engine ended of its own accord mid-session; bring it back.
		c.scheduleRestartLocked(c.cfg.RestartDelay, "engine-end", &after)
	case StateRestarting:
		// Teardown we initiated; the restart timer is already armed.
	}
	c.mu.Unlock()
	run(after)
}

// handleProactive fires once per engine segment at the maximum segment
// duration, forcing a restart before the engine hits its own internal limit.
func (c *Controller) handleProactive(gen int) {
	c.mu.Lock()
	if !c.active || gen != c.engineGen || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	var after []func()
	c.scheduleRestartLocked(c.cfg.RestartDelay, "max-segment", &after)
	c.mu.Unlock()
	run(after)
}

// handleUnknownDeadline escalates an unknown error to permanent if its retry
// never produced a listening state.
func (c *Controller) handleUnknownDeadline(code string) {
	c.mu.Lock()
	if !c.active || c.state == StateListening {
		c.mu.Unlock()
		return
	}
	var after []func()
	slog.Warn("listen: retry after unknown engine error never reached listening",
		"session_id", c.info.SessionID, "code", code)
	c.failLocked(code, &after)
	c.mu.Unlock()
	run(after)
}

// scheduleRestartLocked tears down the current engine and arms a timer to
// start a fresh one after delay. The logical session stays alive throughout.
func (c *Controller) scheduleRestartLocked(delay time.Duration, reason string, after *[]func()) {
	c.setStateLocked(StateRestarting, after)

	if c.proactiveTimer != nil {
		c.proactiveTimer.Stop()
		c.proactiveTimer = nil
	}
	if c.engineRunning {
		eng := c.engine
		*after = append(*after, eng.Stop)
	}
	c.engineRunning = false
	c.armRestartTimerLocked(delay)

	if cb := c.cfg.Callbacks.OnRestart; cb != nil {
		r := reason
		*after = append(*after, func() { cb(r) })
	}
}

// armRestartTimerLocked (re)arms the single pending-restart timer.
func (c *Controller) armRestartTimerLocked(delay time.Duration) {
	if c.restartTimer != nil {
		c.restartTimer.Stop()
	}
	c.restartTimer = time.AfterFunc(delay, c.handleRestartTimer)
}

// handleRestartTimer fires when the restart backoff elapses.
func (c *Controller) handleRestartTimer() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	if c.engineRunning {
		// The old engine still has not reported its end; let that event
		// perform the start instead of overlapping sessions.
		c.pendingStart = true
		c.mu.Unlock()
		return
	}
	eng := c.prepareEngineLocked()
	c.mu.Unlock()
	c.launchEngine(eng)
}

// failLocked terminates the session on a permanent error.
func (c *Controller) failLocked(code string, after *[]func()) {
	c.active = false
	c.pendingStart = false
	c.cancelTimersLocked()
	c.stopWatchdogLocked()
	c.setStateLocked(StateFailed, after)

	if c.engineRunning {
		eng := c.engine
		*after = append(*after, eng.Stop)
	}

	if !c.fatalFired {
		c.fatalFired = true
		if cb := c.cfg.Callbacks.OnFatal; cb != nil {
			reason := code
			*after = append(*after, func() { cb(reason) })
		}
	}
	c.fireEndLocked(after)
}

// watchdogLoop runs the silence watchdog for one logical session.
func (c *Controller) watchdogLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.WatchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.watchdogTick()
		}
	}
}

// watchdogTick restarts the engine when the child has gone quiet for longer
// than the silence threshold, or when nothing has ever been heard and the
// segment has outlived its maximum duration. Restarting resets the engine's
// internal timers and keeps the listening indicator truthful.
func (c *Controller) watchdogTick() {
	c.mu.Lock()
	if !c.active || c.state != StateListening {
		c.mu.Unlock()
		return
	}

	now := time.Now()
	var after []func()
	switch {
	case c.info.HasReceivedSpeech && now.Sub(c.info.LastSpeechAt) > c.cfg.SilenceThreshold:
		slog.Debug("listen: silence threshold exceeded, restarting engine",
			"session_id", c.info.SessionID,
			"since_last_speech", now.Sub(c.info.LastSpeechAt))
		c.scheduleRestartLocked(c.cfg.RestartDelay, "silence", &after)
	case !c.info.HasReceivedSpeech && now.Sub(c.segmentStartedAt) > c.cfg.MaxSegment:
		slog.Debug("listen: no speech for a full segment, restarting engine",
			"session_id", c.info.SessionID)
		c.scheduleRestartLocked(c.cfg.RestartDelay, "max-segment", &after)
	}
	c.mu.Unlock()
	run(after)
}

// setStateLocked transitions to s and queues the state-change callback.
func (c *Controller) setStateLocked(s State, after *[]func()) {
	if c.state == s {
		return
	}
	c.state = s
	if cb := c.cfg.Callbacks.OnStateChange; cb != nil {
		*after = append(*after, func() { cb(s) })
	}
}

// fireEndLocked queues the OnEnd callback, at most once per logical session.
func (c *Controller) fireEndLocked(after *[]func()) {
	if c.endFired {
		return
	}
	c.endFired = true
	if cb := c.cfg.Callbacks.OnEnd; cb != nil {
		*after = append(*after, cb)
	}
}

// cancelTimersLocked stops every pending timer.
func (c *Controller) cancelTimersLocked() {
	c.cancelRestartTimerLocked()
	if c.proactiveTimer != nil {
		c.proactiveTimer.Stop()
		c.proactiveTimer = nil
	}
	if c.unknownDeadline != nil {
		c.unknownDeadline.Stop()
		c.unknownDeadline = nil
	}
}

// cancelRestartTimerLocked stops the pending restart timer, if any.
func (c *Controller) cancelRestartTimerLocked() {
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
}

// stopWatchdogLocked terminates the watchdog goroutine for this session.
func (c *Controller) stopWatchdogLocked() {
	if c.watchdogStop != nil {
		close(c.watchdogStop)
		c.watchdogStop = nil
	}
}

// run invokes queued callback actions after the lock has been released.
func run(after []func()) {
	for _, f := range after {
		f()
	}
}
