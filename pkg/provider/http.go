package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/observability"
)

const (
	// DefaultTimeout bounds one provider call.
	DefaultTimeout = 60 * time.Second

	// maxReplyBytes caps the decoded response body.
	maxReplyBytes = 4 << 20
)

// HTTPConfig configures [NewHTTP].
type HTTPConfig struct {
	Endpoint string
	Model    string
	APIKey   string

	// Client overrides the HTTP client. Its Timeout is left alone; call
	// deadlines come from the context.
	Client *http.Client
	Logger *log.Logger
}

// HTTPProvider posts messages to a JSON endpoint.
type HTTPProvider struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	logger   *log.Logger
}

// NewHTTP validates cfg and returns a provider.
func NewHTTP(cfg HTTPConfig) (*HTTPProvider, error) {
	if err := errors.ValidateURL(cfg.Endpoint); err != nil {
		return nil, err
	}
	p := &HTTPProvider{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.logger == nil {
		p.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return p, nil
}

// Endpoint returns the configured URL.
func (p *HTTPProvider) Endpoint() string { return p.endpoint }

// Model returns the configured model name.
func (p *HTTPProvider) Model() string { return p.model }

type wireRequest struct {
	Message string  `json:"message"`
	Model   string  `json:"model,omitempty"`
	Context Context `json:"context"`
}

// SendMessage implements Provider.
func (p *HTTPProvider) SendMessage(ctx context.Context, text string, c Context) (*Reply, error) {
	start := time.Now()
	hooks := observability.Provider()
	hooks.OnRequest(ctx, "http", p.model)

	reply, err := p.send(ctx, text, c)
	if err != nil {
		hooks.OnError(ctx, "http", p.model, err)
		p.logger.Debug("provider call failed", "endpoint", p.endpoint, "error", err)
		return nil, err
	}
	hooks.OnResponse(ctx, "http", p.model, time.Since(start))
	p.logger.Debug("provider replied", "endpoint", p.endpoint, "bytes", len(reply.Message),
		"actions", len(reply.Actions), "duration", time.Since(start))
	return reply, nil
}

func (p *HTTPProvider) send(ctx context.Context, text string, c Context) (*Reply, error) {
	body, err := json.Marshal(wireRequest{Message: text, Model: p.model, Context: c})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode provider request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "build provider request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(errors.ErrCodeUpstream, "provider returned %s: %s",
			resp.Status, bytes.TrimSpace(snippet))
	}

	var reply Reply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&reply); err != nil {
		return nil, classify(ctx, fmt.Errorf("decode reply: %w", err))
	}
	return &reply, nil
}

// classify maps transport failures to upstream or timeout errors.
func classify(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Wrap(errors.ErrCodeTimeout, err, "provider did not reply in time")
	}
	return errors.Wrap(errors.ErrCodeUpstream, err, "provider request failed")
}

var _ Provider = (*HTTPProvider)(nil)
