package widget

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	// voicePlaceholder stands in for audio input in the transcript.
	voicePlaceholder = "🎤 Audio Message"
	// fallbackReply is appended on any transport failure. Turns are
	// never retried at this layer.
	fallbackReply = "Error communicating with the chatbot."
)

// ErrCaptureInProgress rejects direct dispatch while the capture flow
// still owns the input. Route visitor text through HandleInput.
var ErrCaptureInProgress = errors.New("capture flow in progress")

// Send dispatches one text turn. At most one turn is in flight per
// session; a concurrent call fails with ErrTurnInFlight and leaves the
// transcript untouched.
func (s *Session) Send(ctx context.Context, text string) (*TurnResponse, error) {
	return s.dispatch(ctx, &TurnRequest{Query: text, InputType: "text"}, text)
}

// SendVoice dispatches one voice turn. The transcript records the
// audio placeholder, not the recording.
func (s *Session) SendVoice(ctx context.Context, audioBase64 string) (*TurnResponse, error) {
	return s.dispatch(ctx, &TurnRequest{InputType: "voice", InputAudio: audioBase64}, voicePlaceholder)
}

func (s *Session) dispatch(ctx context.Context, req *TurnRequest, transcriptEntry string) (*TurnResponse, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, ErrSessionEnded
	}
	if s.stage != StageChatting {
		s.mu.Unlock()
		return nil, ErrCaptureInProgress
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	s.inFlight = true
	// History is the transcript before this turn; the query rides
	// separately. The full history travels on every call.
	history := make([]Message, len(s.transcript))
	copy(history, s.transcript)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	s.appendUser(transcriptEntry)
	req.History = history

	resp, err := s.cfg.Backend.Chat(ctx, s.cfg.CompanyID, req)
	if err != nil {
		// An unapproved tenant is a state the embedder surfaces
		// specially; everything else degrades to the fixed fallback.
		if errors.Is(err, ErrCompanyInactive) {
			return nil, err
		}
		s.cfg.Logger.Warn("chat turn failed",
			zap.String("company_id", s.cfg.CompanyID),
			zap.Error(err),
		)
		s.appendAssistant(fallbackReply)
		return nil, err
	}

	s.appendAssistant(resp.Answer)
	return resp, nil
}
