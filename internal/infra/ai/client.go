// Package ai is the HTTP client for the external retrieval/generation
// service. All calls go through a shared circuit breaker plus retry
// with backoff, and failures surface as ErrExternalService so handlers
// can map them uniformly.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/ai")

// Client talks to the AI service over its JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewClient builds the AI service client. baseURL is the service root,
// without any endpoint path.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// Generate forwards one chat turn to POST /chat/generate and returns
// the assistant reply.
func (c *Client) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	ctx, span := tracer.Start(ctx, "ai.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", req.CompanyID))

	var out domain.GenerateResponse
	if err := c.post(ctx, "/chat/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summarize asks POST /chat/summarize for a summary, qualification
// score and topic list over a full transcript.
func (c *Client) Summarize(ctx context.Context, history []domain.Message) (*domain.SummarizeResponse, error) {
	ctx, span := tracer.Start(ctx, "ai.Summarize")
	defer span.End()

	var out domain.SummarizeResponse
	if err := c.post(ctx, "/chat/summarize", &domain.SummarizeRequest{History: history}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest sends a document's text to POST /process/ingest for
// chunking and embedding under the tenant's namespace.
func (c *Client) Ingest(ctx context.Context, req *domain.IngestRequest) error {
	ctx, span := tracer.Start(ctx, "ai.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", req.CompanyID))

	return c.post(ctx, "/process/ingest", req, nil)
}

// DeleteCollection drops a tenant's whole vector namespace. Called
// before the tenant row is deleted.
func (c *Client) DeleteCollection(ctx context.Context, namespace string) error {
	ctx, span := tracer.Start(ctx, "ai.DeleteCollection")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace))

	return c.post(ctx, "/manage/delete-collection", map[string]string{
		"companyId": namespace,
	}, nil)
}

// DeleteDocumentVectors removes one document's chunks from the vector
// store.
func (c *Client) DeleteDocumentVectors(ctx context.Context, namespace, docID string) error {
	ctx, span := tracer.Start(ctx, "ai.DeleteDocumentVectors")
	defer span.End()

	return c.post(ctx, "/manage/delete-document-vectors", map[string]string{
		"companyId":  namespace,
		"documentId": docID,
	}, nil)
}

// UpdateDocumentStatus flips a document's retrieval visibility in the
// vector store without re-ingesting it.
func (c *Client) UpdateDocumentStatus(ctx context.Context, namespace, docID string, isActive bool) error {
	ctx, span := tracer.Start(ctx, "ai.UpdateDocumentStatus")
	defer span.End()

	return c.post(ctx, "/manage/update-document-status", map[string]any{
		"companyId":  namespace,
		"documentId": docID,
		"isActive":   isActive,
	}, nil)
}

// post runs one JSON call through the breaker + retry stack. out may be
// nil when the response body is irrelevant.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("marshal request: %w", err)
			}

			url := c.baseURL + path
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("create http request: %w", err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return fmt.Errorf("http call to ai service: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ai service %s returned status %d", path, resp.StatusCode)
			}

			if out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return nil, nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "ai-service", Err: err}
	}
	return nil
}
