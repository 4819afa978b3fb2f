package widget

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Capture prompts, verbatim from the product copy.
const (
	promptName     = "Before we begin, could I please get your name?"
	promptEmail    = "Nice to meet you! What is your email address?"
	promptPhone    = "Thanks! Lastly, what is your phone number?"
	captureSuccess = "Thank you! I've saved your details. How can I help you today?"
	captureDegrade = "Thanks. How can I help you today?"
)

func defaultGreeting(companyName string) string {
	return fmt.Sprintf("Connected to %s. Ask me anything about your data!", companyName)
}

// Start emits the greeting and, unless this visitor already completed
// capture in this browser session, kicks off the capture flow. The
// completion flag is read exactly once, here.
func (s *Session) Start(ctx context.Context) {
	greeting := s.cfg.Greeting
	if greeting == "" {
		greeting = defaultGreeting(s.cfg.CompanyName)
	}
	s.appendAssistant(greeting)

	captured := s.cfg.Completions != nil && s.cfg.Completions.Completed(s.cfg.CompanyID)
	if captured {
		s.setStage(StageChatting)
		return
	}

	s.setStage(StageAskName)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.GreetingFollowUpDelay):
		}
		s.prompt(ctx, promptName)
	}()
}

// prompt waits out the typing delay, then appends a capture prompt.
func (s *Session) prompt(ctx context.Context, text string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.cfg.TypingDelay):
	}

	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		return
	}
	s.appendAssistant(text)
}

func (s *Session) setStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}

// HandleInput routes one visitor utterance. During capture it feeds
// the state machine; once chatting, it dispatches a chat turn and
// returns the assistant reply.
func (s *Session) HandleInput(ctx context.Context, text string) (*TurnResponse, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, ErrSessionEnded
	}
	stage := s.stage
	s.mu.Unlock()

	switch stage {
	case StageAskName:
		s.appendUser(text)
		s.mu.Lock()
		s.profile.Name = text
		s.stage = StageAskEmail
		s.mu.Unlock()
		s.prompt(ctx, promptEmail)
		return nil, nil

	case StageAskEmail:
		s.appendUser(text)
		s.mu.Lock()
		s.profile.Email = text
		s.stage = StageAskPhone
		s.mu.Unlock()
		s.prompt(ctx, promptPhone)
		return nil, nil

	case StageAskPhone:
		s.appendUser(text)
		s.mu.Lock()
		s.profile.Phone = text
		s.stage = StageChatting
		profile := s.profile
		s.mu.Unlock()
		s.finishCapture(ctx, profile)
		return nil, nil

	default:
		return s.Send(ctx, text)
	}
}

// finishCapture submits the lead and closes out the flow. A failed
// submit degrades to the shorter acknowledgement; it never blocks the
// conversation or resurfaces to the visitor.
func (s *Session) finishCapture(ctx context.Context, profile Profile) {
	if s.cfg.Completions != nil {
		s.cfg.Completions.MarkCompleted(s.cfg.CompanyID, profile)
	}

	ack := captureSuccess
	if err := s.cfg.Backend.SubmitLead(ctx, s.cfg.CompanyID, profile); err != nil {
		s.cfg.Logger.Warn("lead submit failed",
			zap.String("company_id", s.cfg.CompanyID),
			zap.Error(err),
		)
		ack = captureDegrade
	}
	s.prompt(ctx, ack)
}
