package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage of the session lifecycle. The capture stages are linear; a
// session that skips capture starts directly in StageChatting.
type Stage string

const (
	StageAskName  Stage = "ASK_NAME"
	StageAskEmail Stage = "ASK_EMAIL"
	StageAskPhone Stage = "ASK_PHONE"
	StageChatting Stage = "CHATTING"
	StageEnded    Stage = "ENDED"
)

// Session errors.
var (
	// ErrSessionEnded rejects input arriving after termination started.
	ErrSessionEnded = errors.New("session has ended")
	// ErrTurnInFlight rejects a turn while another is outstanding.
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

// CompletionStore persists the capture-completed flag across page
// loads within one browser session, keyed by company. The flag is read
// once when the session starts, never polled.
type CompletionStore interface {
	Completed(companyID string) bool
	MarkCompleted(companyID string, profile Profile)
}

// Backend is the API surface the session drives, implemented by Client.
type Backend interface {
	Chat(ctx context.Context, companyID string, req *TurnRequest) (*TurnResponse, error)
	SubmitLead(ctx context.Context, companyID string, profile Profile) error
	EndSession(ctx context.Context, companyID string, history []Message, profile Profile) error
}

// Config parameterizes a Session. Zero-value delays get the defaults;
// tests set them explicitly to keep runs fast.
type Config struct {
	CompanyID   string
	CompanyName string
	// Greeting overrides the default greeting when the tenant set one.
	Greeting string

	Backend     Backend
	Completions CompletionStore
	Logger      *zap.Logger

	// TypingDelay runs before each capture prompt so the widget's
	// typing indicator has time to show. Default 600ms.
	TypingDelay time.Duration
	// GreetingFollowUpDelay separates the greeting from the first
	// capture prompt. Default 1s.
	GreetingFollowUpDelay time.Duration
	// InactivityTimeout ends the session after silence. Default 60s.
	InactivityTimeout time.Duration
	// EndTimeout bounds the background termination call. Default 10s.
	EndTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.TypingDelay == 0 {
		c.TypingDelay = 600 * time.Millisecond
	}
	if c.GreetingFollowUpDelay == 0 {
		c.GreetingFollowUpDelay = time.Second
	}
	if c.InactivityTimeout == 0 {
		c.InactivityTimeout = 60 * time.Second
	}
	if c.EndTimeout == 0 {
		c.EndTimeout = 10 * time.Second
	}
}

// Session is one visitor conversation: an append-only transcript, the
// capture state machine and the termination lifecycle. Safe for
// concurrent use.
type Session struct {
	cfg Config

	mu         sync.Mutex
	stage      Stage
	profile    Profile
	transcript []Message
	inFlight   bool
	ended      bool

	inactivity *time.Timer
	endOnce    sync.Once

	// onMessage, when set, observes every appended message. Called
	// outside the lock.
	onMessage func(Message)
}

// NewSession builds a session. Call Start to emit the greeting and
// begin the capture flow.
func NewSession(cfg Config) *Session {
	cfg.applyDefaults()
	return &Session{cfg: cfg, stage: StageChatting}
}

// OnMessage registers the transcript observer the widget UI renders
// from. Must be set before Start.
func (s *Session) OnMessage(fn func(Message)) {
	s.onMessage = fn
}

// Stage returns the current lifecycle stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Profile returns the contact data collected so far.
func (s *Session) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Transcript returns a copy of the transcript so far.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// append adds one message to the transcript and resets the inactivity
// clock. The transcript only ever grows.
func (s *Session) append(msg Message) {
	s.mu.Lock()
	s.transcript = append(s.transcript, msg)
	s.resetInactivityLocked()
	s.mu.Unlock()

	if s.onMessage != nil {
		s.onMessage(msg)
	}
}

func (s *Session) appendAssistant(content string) {
	s.append(Message{Role: RoleAssistant, Content: content})
}

func (s *Session) appendUser(content string) {
	s.append(Message{Role: RoleUser, Content: content})
}

// snapshot returns the transcript under the lock.
func (s *Session) snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) resetInactivityLocked() {
	if s.ended {
		return
	}
	if s.inactivity != nil {
		s.inactivity.Stop()
	}
	s.inactivity = time.AfterFunc(s.cfg.InactivityTimeout, func() {
		s.cfg.Logger.Info("session idle, terminating",
			zap.String("company_id", s.cfg.CompanyID))
		s.EndInBackground()
	})
}
