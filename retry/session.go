package retry

import (
	"time"

	"github.com/google/uuid"

	"auto_manim_codegen/generator"
	"auto_manim_codegen/validation"
)

// State is a position in the generate/validate loop.
type State int

const (
	StateAwaitingGeneration State = iota
	StateValidating
	StateSuccess
	StateExhausted
	StateFatalParse
)

var stateNames = map[State]string{
	StateAwaitingGeneration: "awaiting-generation",
	StateValidating:         "validating",
	StateSuccess:            "success",
	StateExhausted:          "exhausted",
	StateFatalParse:         "fatal-parse",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the loop stops in this state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExhausted || s == StateFatalParse
}

// Turn records what happened in one attempt.
type Turn struct {
	Attempt   int                 `json:"attempt"`
	Reply     string              `json:"reply,omitempty"`
	Problem   string              `json:"problem,omitempty"`
	Results   []validation.Result `json:"results,omitempty"`
	Feedback  string              `json:"feedback,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Session is the only state carried between attempts. The controller owns it.
type Session struct {
	ID          string `json:"id"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Feedback    string `json:"-"`
	State       State  `json:"state"`
	History     []Turn `json:"history"`
}

func newSession(maxAttempts int) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Attempt:     1,
		MaxAttempts: maxAttempts,
		State:       StateAwaitingGeneration,
	}
}

func (s *Session) lastAttempt() bool {
	return s.Attempt >= s.MaxAttempts
}

func (s *Session) appendTurn(t Turn) {
	t.Attempt = s.Attempt
	t.CreatedAt = time.Now()
	s.History = append(s.History, t)
}

// exchanges replays the finished attempts for the next oracle call.
func (s *Session) exchanges() []generator.Exchange {
	out := make([]generator.Exchange, 0, len(s.History))
	for _, t := range s.History {
		out = append(out, generator.Exchange{Reply: t.Reply, Feedback: t.Feedback})
	}
	return out
}

// advance moves to the next attempt with the given feedback.
func (s *Session) advance(feedback string) {
	if n := len(s.History); n > 0 {
		s.History[n-1].Feedback = feedback
	}
	s.Feedback = feedback
	s.Attempt++
	s.State = StateAwaitingGeneration
}
