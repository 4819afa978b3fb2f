// Package widget implements the embeddable chat session engine: the
// lead-capture flow, turn dispatch and session termination that a chat
// widget drives against the platform's public endpoints.
package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Message is one turn of the conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Profile is the visitor contact data collected by the capture flow.
// Raw strings, no format validation.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// TurnRequest is the POST /chat/{companyId} payload.
type TurnRequest struct {
	Query      string    `json:"query"`
	History    []Message `json:"history"`
	InputType  string    `json:"inputType,omitempty"`
	InputAudio string    `json:"inputAudio,omitempty"`
}

// TurnResponse is the assistant reply. Audio is base64 mp3, played
// best-effort by the embedder.
type TurnResponse struct {
	Answer string `json:"answer"`
	Audio  string `json:"audio,omitempty"`
}

// ErrCompanyInactive is returned by Client.Chat when the tenant is not
// approved for traffic. The embedder shows a "not available" state
// instead of the transient-error fallback.
var ErrCompanyInactive = errors.New("company is not active")

// Client calls the platform's public widget endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a widget API client. A nil httpClient gets a
// default with a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Chat sends one visitor turn.
func (c *Client) Chat(ctx context.Context, companyID string, req *TurnRequest) (*TurnResponse, error) {
	var resp TurnResponse
	err := c.post(ctx, "/chat/"+companyID, req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitLead records the captured contact details.
func (c *Client) SubmitLead(ctx context.Context, companyID string, profile Profile) error {
	payload := struct {
		CompanyID string `json:"companyId"`
		Profile
	}{CompanyID: companyID, Profile: profile}
	return c.post(ctx, "/company/lead", payload, nil)
}

// EndSession runs the server-side termination protocol.
func (c *Client) EndSession(ctx context.Context, companyID string, history []Message, profile Profile) error {
	payload := struct {
		CompanyID string    `json:"companyId"`
		History   []Message `json:"history"`
		LeadData  Profile   `json:"leadData"`
	}{CompanyID: companyID, History: history, LeadData: profile}
	return c.post(ctx, "/company/end-session", payload, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Code == "company_inactive" {
			return ErrCompanyInactive
		}
		if apiErr.Error != "" {
			return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
