// Package mock provides scripted test doubles for the recog package.
//
// Factory records every engine it creates so tests can drive whichever
// underlying session the controller is currently using:
//
//	f := &mock.Factory{}
//	ctrl := listen.NewController(listen.ControllerConfig{Factory: f.New, ...})
//	_ = ctrl.Start()
//	f.Latest().FireStart()
//	f.Latest().FireResult(recog.Result{Transcript: "hello", IsFinal: true})
package mock

import (
	"sync"

	"github.com/LiorLearning/social-story/pkg/recog"
)

// Factory creates mock Engines and records them in creation order.
// Its New method satisfies recog.Factory. Safe for concurrent use.
type Factory struct {
	mu sync.Mutex

	// AutoStart is copied onto every created engine.
	AutoStart bool

	// AutoEndOnStop is copied onto every created engine.
	AutoEndOnStop bool

	// StartErr is copied onto every created engine.
	StartErr error

	engines []*Engine
}

// New creates a fresh Engine with the given config and records it.
func (f *Factory) New(cfg recog.Config) recog.Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &Engine{
		Cfg:           cfg,
		AutoStart:     f.AutoStart,
		AutoEndOnStop: f.AutoEndOnStop,
		StartErr:      f.StartErr,
	}
	f.engines = append(f.engines, e)
	return e
}

// Latest returns the most recently created engine, or nil when none exists.
func (f *Factory) Latest() *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// Count returns how many engines have been created.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

// Engine is a mock implementation of recog.Engine. Callbacks are invoked
// synchronously from the Fire* helpers, mirroring the single-threaded
// callback model of real engines.
type Engine struct {
	mu sync.Mutex

	// Cfg is the Config the engine was created with.
	Cfg recog.Config

	// StartErr, if non-nil, is returned by Start.
	StartErr error

	// AutoStart, when true, makes Start fire OnStart immediately. Leave
	// false to script the onstart timing explicitly with FireStart.
	AutoStart bool

	// AutoEndOnStop, when true, makes Stop fire OnEnd immediately —
	// matching the "eventually emits onend after stop" guarantee with the
	// shortest possible eventually.
	AutoEndOnStop bool

	startCalls int
	stopCalls  int
	ended      bool
}

// Compile-time interface check.
var _ recog.Engine = (*Engine)(nil)

// Start records the call and, when AutoStart is set, fires OnStart.
func (e *Engine) Start() error {
	e.mu.Lock()
	e.startCalls++
	err := e.StartErr
	auto := e.AutoStart
	e.ended = false
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if auto {
		e.FireStart()
	}
	return nil
}

// Stop records the call and, when AutoEndOnStop is set, fires OnEnd.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopCalls++
	auto := e.AutoEndOnStop
	e.mu.Unlock()
	if auto {
		e.FireEnd()
	}
}

// StartCalls returns how many times Start was invoked.
func (e *Engine) StartCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startCalls
}

// StopCalls returns how many times Stop was invoked.
func (e *Engine) StopCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCalls
}

// FireStart invokes the OnStart handler.
func (e *Engine) FireStart() {
	if h := e.Cfg.Handlers.OnStart; h != nil {
		h()
	}
}

// FireResult invokes the OnResult handler with the given results as one batch.
func (e *Engine) FireResult(results ...recog.Result) {
	if h := e.Cfg.Handlers.OnResult; h != nil {
		h(results)
	}
}

// FireError invokes the OnError handler with code.
func (e *Engine) FireError(code string) {
	if h := e.Cfg.Handlers.OnError; h != nil {
		h(code)
	}
}

// FireEnd invokes the OnEnd handler. Subsequent calls are no-ops, matching
// the engine contract that OnEnd fires at most once per session.
func (e *Engine) FireEnd() {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return
	}
	e.ended = true
	e.mu.Unlock()
	if h := e.Cfg.Handlers.OnEnd; h != nil {
		h()
	}
}
