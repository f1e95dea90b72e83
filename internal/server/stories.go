package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/LiorLearning/social-story/internal/observe"
	"github.com/LiorLearning/social-story/internal/story"
	"github.com/LiorLearning/social-story/pkg/voice"
)

// storySummary is the catalogue listing shape: metadata without page bodies.
type storySummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Author       string   `json:"author,omitempty"`
	ReadingLevel string   `json:"reading_level,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	PageCount    int      `json:"page_count"`
}

// handleListStories serves GET /stories with optional reading_level and tag
// query filters.
func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	opts := story.ListOptions{
		ReadingLevel: r.URL.Query().Get("reading_level"),
		Tags:         r.URL.Query()["tag"],
	}

	stories, err := s.deps.Stories.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing stories failed")
		return
	}

	summaries := make([]storySummary, 0, len(stories))
	for _, st := range stories {
		summaries = append(summaries, storySummary{
			ID:           st.ID,
			Title:        st.Title,
			Author:       st.Author,
			ReadingLevel: st.ReadingLevel,
			Tags:         st.Tags,
			PageCount:    len(st.Pages),
		})
	}
	slices.SortFunc(summaries, func(a, b storySummary) int {
		return strings.Compare(a.Title, b.Title)
	})

	writeJSON(w, http.StatusOK, summaries)
}

// handleGetStory serves GET /stories/{id}.
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookupStory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleGetPage serves GET /stories/{id}/pages/{page}.
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	_, page, ok := s.lookupPage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// highlightResponse is the result of table-driven highlight resolution.
type highlightResponse struct {
	Line       int   `json:"line"`
	PositionMS int64 `json:"position_ms"`
}

// handleHighlight serves GET /stories/{id}/pages/{page}/highlight. It maps a
// playback position (position_ms query parameter) to the line index that
// should be highlighted, using the page's karaoke timing table.
func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	_, page, ok := s.lookupPage(w, r)
	if !ok {
		return
	}
	if !page.HasTimings() {
		writeError(w, http.StatusNotFound, "page has no narration timings")
		return
	}

	raw := r.URL.Query().Get("position_ms")
	positionMS, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || positionMS < 0 {
		writeError(w, http.StatusBadRequest, "position_ms must be a non-negative integer")
		return
	}

	sched, err := page.Schedule()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "invalid timing table")
		return
	}

	writeJSON(w, http.StatusOK, highlightResponse{
		Line:       sched.Resolve(time.Duration(positionMS) * time.Millisecond),
		PositionMS: positionMS,
	})
}

// handleNarrate serves POST /stories/{id}/pages/{page}/narrate: it streams
// synthesized narration audio for the page as a chunked response. The
// reader_id query parameter applies that reader's saved speed preference.
func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voices == nil {
		writeError(w, http.StatusServiceUnavailable, "narration is not configured")
		return
	}

	st, page, ok := s.lookupPage(w, r)
	if !ok {
		return
	}

	profile := s.narrationProfile(r.Context(), st, r.URL.Query().Get("reader_id"))

	text := make(chan string, 1)
	text <- page.Text()
	close(text)

	start := time.Now()
	audio, err := s.deps.Voices.SynthesizeStream(r.Context(), text, profile)
	if err != nil {
		s.deps.Metrics.RecordProviderError(r.Context(), profile.Provider)
		writeError(w, http.StatusBadGateway, "narration synthesis failed")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	for chunk := range audio {
		if _, err := w.Write(chunk); err != nil {
			return
		}
		_ = rc.Flush()
	}
	s.deps.Metrics.SynthesisDuration.Record(r.Context(), time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", profile.Provider)))
}

// narrationProfile resolves the voice profile for a story: the configured
// default, overridden by the story's own voice, at the reader's saved speed.
func (s *Server) narrationProfile(ctx context.Context, st story.Story, readerID string) voice.Profile {
	profile := s.deps.DefaultVoice
	if st.Voice != "" {
		profile.ID = st.Voice
	}
	if readerID != "" {
		if p, err := s.deps.Prefs.Get(ctx, readerID); err == nil {
			profile.Speed = p.Speed
		}
	}
	return profile
}

// lookupStory resolves the {id} path value, writing the error response on
// failure.
func (s *Server) lookupStory(w http.ResponseWriter, r *http.Request) (story.Story, bool) {
	st, err := s.deps.Stories.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, story.ErrNotFound) {
		writeError(w, http.StatusNotFound, "story not found")
		return story.Story{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading story failed")
		return story.Story{}, false
	}
	return st, true
}

// lookupPage resolves the {id} and {page} path values.
func (s *Server) lookupPage(w http.ResponseWriter, r *http.Request) (story.Story, story.Page, bool) {
	st, ok := s.lookupStory(w, r)
	if !ok {
		return story.Story{}, story.Page{}, false
	}

	number, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be an integer")
		return story.Story{}, story.Page{}, false
	}
	page, found := st.Page(number)
	if !found {
		writeError(w, http.StatusNotFound, "page not found")
		return story.Story{}, story.Page{}, false
	}
	return st, page, true
}
