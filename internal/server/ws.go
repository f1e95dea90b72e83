package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/LiorLearning/social-story/internal/events"
	"github.com/LiorLearning/social-story/internal/listen"
	"github.com/LiorLearning/social-story/internal/reading"
	"github.com/LiorLearning/social-story/internal/story"
	"github.com/LiorLearning/social-story/pkg/recog"
)

// wsWriteTimeout bounds a single downstream websocket write.
const wsWriteTimeout = 5 * time.Second

// clientMessage is everything the browser sends up the /ws/listen socket.
//
// "begin" opens a logical listening session against a story page, "engine"
// forwards one raw recognition-engine event verbatim, and "stop" ends the
// session. The browser owns the actual recognition engine; the server owns
// the session: restart policy, transcript accumulation, and scoring.
//
// Every engine event must echo the engine_id from the start command that
// opened the engine session it belongs to. Events whose engine_id does not
// match the session the controller currently expects are dropped, so a slow
// round trip cannot deliver an old engine's events to its replacement.
type clientMessage struct {
	Type string `json:"type"` // "begin", "engine", "stop"

	// begin fields.
	StoryID    string `json:"story_id,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
	ReaderID   string `json:"reader_id,omitempty"`

	// engine fields.
	EngineID int            `json:"engine_id,omitempty"`
	Event    string         `json:"event,omitempty"` // "start", "result", "error", "end"
	Results  []engineResult `json:"results,omitempty"`
	Code     string         `json:"code,omitempty"`
}

// engineResult is one raw recognition result as reported by the browser.
type engineResult struct {
	Transcript string  `json:"transcript"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence,omitempty"`
}

// serverMessage is everything sent down the /ws/listen socket.
type serverMessage struct {
	Type string `json:"type"` // "command", "state", "transcript", "accuracy", "restart", "end", "fatal", "error"

	// Command asks the browser to start or stop its recognition engine.
	// EngineID identifies the engine session the command belongs to; the
	// browser must echo it on every engine event it reports back.
	Command  string `json:"command,omitempty"`
	EngineID int    `json:"engine_id,omitempty"`

	// State carries controller state transitions.
	State     string `json:"state,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Transcript fields.
	Committed string `json:"committed,omitempty"`
	Interim   string `json:"interim,omitempty"`
	Full      string `json:"full,omitempty"`

	// Accuracy carries live scoring against the page text.
	Accuracy *accuracyPayload `json:"accuracy,omitempty"`

	// Reason accompanies "restart"; Code accompanies "fatal".
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`

	Error string `json:"error,omitempty"`
}

// accuracyPayload is the scored comparison of the transcript so far against
// the target page text.
type accuracyPayload struct {
	Percentage        float64            `json:"percentage"`
	PerWord           []bool             `json:"per_word"`
	MissingWords      []string           `json:"missing_words,omitempty"`
	IncorrectAttempts []string           `json:"incorrect_attempts,omitempty"`
	NearMisses        []reading.NearMiss `json:"near_misses,omitempty"`
}

// wsSession is one /ws/listen connection: a listening session controller
// whose underlying "engine" lives on the far side of the socket.
type wsSession struct {
	srv  *Server
	conn *websocket.Conn
	ctx  context.Context

	writeMu sync.Mutex

	mu        sync.Mutex
	ctrl      *listen.Controller
	engine    *wsEngine // engine session the controller currently expects events for
	engineSeq int       // id source for engine sessions on this socket
	target    string    // page text being read; empty means no scoring
	sessionID string
	storyID   string
	page      int
	readerID  string
	started   time.Time
	restarts  int
	accuracy  float64
	scored    bool
}

// handleListen serves GET /ws/listen.
func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}

	s.deps.Metrics.ActiveWSConnections.Add(r.Context(), 1)
	defer s.deps.Metrics.ActiveWSConnections.Add(r.Context(), -1)

	sess := &wsSession{srv: s, conn: conn, ctx: r.Context()}

	rc := s.recognitionConfig()
	ctrl, err := listen.NewController(listen.ControllerConfig{
		Factory:             sess.engineFactory,
		Language:            rc.Language,
		SilenceThreshold:    rc.SilenceThreshold,
		MaxSegment:          rc.MaxSegment,
		WatchdogInterval:    rc.WatchdogInterval,
		RestartDelay:        rc.RestartDelay,
		NetworkRestartDelay: rc.NetworkRestartDelay,
		Callbacks: listen.Callbacks{
			OnStateChange: sess.onStateChange,
			OnTranscript:  sess.onTranscript,
			OnRestart:     sess.onRestart,
			OnFatal:       sess.onFatal,
			OnEnd:         sess.onEnd,
		},
	})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "controller setup failed")
		return
	}
	sess.ctrl = ctrl

	sess.readLoop()

	// The client is gone. Tear the session down and, since no more engine
	// events can arrive over the socket, report the engine ended so the
	// controller can complete its stop.
	ctrl.Stop()
	sess.endCurrentEngine()
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop decodes upstream messages until the socket closes.
func (s *wsSession) readLoop() {
	for {
		var msg clientMessage
		if err := wsjson.Read(s.ctx, s.conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("websocket read ended", "error", err)
			}
			return
		}

		switch msg.Type {
		case "begin":
			s.handleBegin(msg)
		case "engine":
			s.handleEngineEvent(msg)
		case "stop":
			s.ctrl.Stop()
		default:
			s.send(serverMessage{Type: "error", Error: "unknown message type"})
		}
	}
}

// handleBegin opens the logical listening session.
func (s *wsSession) handleBegin(msg clientMessage) {
	target := ""
	if msg.StoryID != "" {
		st, err := s.srv.deps.Stories.Get(s.ctx, msg.StoryID)
		if err != nil {
			s.send(serverMessage{Type: "error", Error: "story not found"})
			return
		}
		page, ok := st.Page(msg.PageNumber)
		if !ok {
			s.send(serverMessage{Type: "error", Error: "page not found"})
			return
		}
		target = page.Text()
	}

	if err := s.ctrl.Start(); err != nil {
		s.send(serverMessage{Type: "error", Error: err.Error()})
		return
	}

	// Engine events arrive on the same goroutine that ran this begin, so
	// nothing observes the session fields before they are committed here.
	sessionID := s.ctrl.Info().SessionID
	s.mu.Lock()
	s.sessionID = sessionID
	s.target = target
	s.storyID = msg.StoryID
	s.page = msg.PageNumber
	s.readerID = msg.ReaderID
	s.started = time.Now()
	s.restarts = 0
	s.accuracy = 0
	s.scored = false
	s.mu.Unlock()

	s.srv.deps.Metrics.SessionsStarted.Add(s.ctx, 1)
	s.srv.deps.Metrics.ActiveSessions.Add(s.ctx, 1)
	s.send(serverMessage{Type: "state", State: s.ctrl.State().String(), SessionID: sessionID})
}

// handleEngineEvent forwards one raw browser engine event to the handler set
// of the engine session the controller currently expects. Events carrying a
// superseded engine_id are dropped: by the time they arrive the controller
// has already replaced that engine session.
func (s *wsSession) handleEngineEvent(msg clientMessage) {
	s.mu.Lock()
	eng := s.engine
	s.mu.Unlock()
	if eng == nil {
		return // no engine session open; late event after stop
	}
	if msg.EngineID != eng.id {
		slog.Debug("dropping engine event for superseded engine session",
			"event", msg.Event, "engine_id", msg.EngineID, "current", eng.id)
		return
	}

	switch msg.Event {
	case "start":
		if eng.handlers.OnStart != nil {
			eng.handlers.OnStart()
		}
	case "result":
		if eng.handlers.OnResult != nil && len(msg.Results) > 0 {
			results := make([]recog.Result, len(msg.Results))
			for i, r := range msg.Results {
				results[i] = recog.Result{
					Transcript: r.Transcript,
					IsFinal:    r.IsFinal,
					Confidence: r.Confidence,
				}
			}
			eng.handlers.OnResult(results)
		}
	case "error":
		if eng.handlers.OnError != nil {
			eng.handlers.OnError(msg.Code)
		}
	case "end":
		s.endEngine(msg.EngineID)
	default:
		s.send(serverMessage{Type: "error", Error: "unknown engine event"})
	}
}

// endEngine delivers the end event for engine session id exactly once and
// forgets it. Ends for superseded engine sessions are dropped.
func (s *wsSession) endEngine(id int) {
	s.mu.Lock()
	eng := s.engine
	if eng == nil || eng.id != id {
		s.mu.Unlock()
		return
	}
	s.engine = nil
	s.mu.Unlock()
	if eng.handlers.OnEnd != nil {
		eng.handlers.OnEnd()
	}
}

// endCurrentEngine delivers the end event for whatever engine session is
// open, for socket teardown when no more browser events can arrive.
func (s *wsSession) endCurrentEngine() {
	s.mu.Lock()
	eng := s.engine
	s.engine = nil
	s.mu.Unlock()
	if eng != nil && eng.handlers.OnEnd != nil {
		eng.handlers.OnEnd()
	}
}

// engineFactory is the [recog.Factory] handed to the controller. Each engine
// session is a pair of start/stop commands sent down the socket; its events
// are whatever the browser reports back up, matched by engine id.
func (s *wsSession) engineFactory(cfg recog.Config) recog.Engine {
	s.mu.Lock()
	s.engineSeq++
	eng := &wsEngine{sess: s, handlers: cfg.Handlers, id: s.engineSeq}
	s.engine = eng
	s.mu.Unlock()
	return eng
}

// Controller callbacks. All run on controller event flow and must not block.

func (s *wsSession) onStateChange(state listen.State) {
	s.send(serverMessage{Type: "state", State: state.String()})
}

func (s *wsSession) onTranscript(snap listen.Snapshot) {
	msg := serverMessage{
		Type:      "transcript",
		Committed: snap.Committed,
		Interim:   snap.Interim,
		Full:      snap.Full(),
	}

	s.mu.Lock()
	target := s.target
	s.mu.Unlock()

	if target != "" {
		result := reading.Score(snap.Full(), target)
		breakdown := reading.Analyze(snap.Full(), target)
		msg.Accuracy = &accuracyPayload{
			Percentage:        result.Percentage,
			PerWord:           result.PerWord,
			MissingWords:      breakdown.MissingWords,
			IncorrectAttempts: breakdown.IncorrectAttempts,
			NearMisses:        reading.FindNearMisses(breakdown),
		}

		s.mu.Lock()
		s.accuracy = result.Percentage
		s.scored = true
		s.mu.Unlock()
	}

	s.send(msg)
}

func (s *wsSession) onRestart(reason string) {
	s.mu.Lock()
	s.restarts++
	s.mu.Unlock()
	s.srv.deps.Metrics.RecordEngineRestart(s.ctx, reason)
	s.send(serverMessage{Type: "restart", Reason: reason})
}

func (s *wsSession) onFatal(code string) {
	s.srv.deps.Metrics.RecordEngineError(s.ctx, code, listen.ClassifyError(code).String())
	s.send(serverMessage{Type: "fatal", Code: code})
}

// onEnd fires once per logical session: persist progress, publish the
// summary, and tell the client.
func (s *wsSession) onEnd() {
	s.mu.Lock()
	sessionID := s.sessionID
	storyID, page, readerID := s.storyID, s.page, s.readerID
	started, restarts := s.started, s.restarts
	accuracy, scored := s.accuracy, s.scored
	s.mu.Unlock()

	s.srv.deps.Metrics.ActiveSessions.Add(s.ctx, -1)
	if scored {
		s.srv.deps.Metrics.RecordAccuracy(s.ctx, accuracy)
	}

	if s.srv.deps.Progress != nil && readerID != "" && storyID != "" && scored {
		err := s.srv.deps.Progress.Save(s.ctx, story.Progress{
			ReaderID:   readerID,
			StoryID:    storyID,
			PageNumber: page,
			Accuracy:   accuracy,
		})
		if err != nil {
			slog.Warn("saving reading progress failed", "reader", readerID, "error", err)
		}
	}

	summary := events.SessionSummary{
		SessionID:  sessionID,
		ReaderID:   readerID,
		StoryID:    storyID,
		PageNumber: page,
		DurationMS: time.Since(started).Milliseconds(),
		Restarts:   restarts,
		EndedAt:    time.Now(),
	}
	if scored {
		summary.Accuracy = accuracy
	}
	if err := s.srv.deps.Publisher.PublishSummary(s.ctx, summary); err != nil {
		slog.Warn("publishing session summary failed", "error", err)
	}

	s.send(serverMessage{Type: "end", SessionID: sessionID})
}

// send writes one downstream message, dropping it if the socket is gone.
func (s *wsSession) send(msg serverMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		slog.Debug("websocket write failed", "type", msg.Type, "error", err)
	}
}

// wsEngine adapts one controller-side engine session onto the socket: Start
// and Stop become commands to the browser, events arrive via
// handleEngineEvent. The id ties the browser's events back to this session.
type wsEngine struct {
	sess     *wsSession
	handlers recog.Handlers
	id       int
}

// Compile-time interface assertion.
var _ recog.Engine = (*wsEngine)(nil)

// Start asks the browser to start its recognition engine.
func (e *wsEngine) Start() error {
	e.sess.send(serverMessage{Type: "command", Command: "start", EngineID: e.id})
	return nil
}

// Stop asks the browser to stop its recognition engine. The browser's "end"
// engine event completes the stop.
func (e *wsEngine) Stop() {
	e.sess.send(serverMessage{Type: "command", Command: "stop", EngineID: e.id})
}
