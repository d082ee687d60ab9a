package nodes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pulsely/flowengine/pkg/schema"
)

// HTTPConfig configures the webhook action's HTTP client.
type HTTPConfig struct {
	MaxResponseBody int64
	DefaultTimeout  time.Duration
}

const (
	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
	defaultHTTPTimeout     = 30 * time.Second
)

// ActionHandler executes action nodes. The webhook action performs a real
// HTTP call; post-to-social, save-to-database and send-email return stub
// responses pending concrete delivery collaborators.
type ActionHandler struct {
	config HTTPConfig
}

// NewActionHandler creates an action node handler.
func NewActionHandler(cfg HTTPConfig) *ActionHandler {
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultHTTPTimeout
	}
	return &ActionHandler{config: cfg}
}

func (h *ActionHandler) Type() schema.NodeType { return schema.NodeTypeAction }

func (h *ActionHandler) Execute(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config()

	actionType := schema.ActionType(stringParam(cfg, "actionType", ""))
	switch actionType {
	case schema.ActionWebhook:
		return h.executeWebhook(ctx, req)

	case schema.ActionPostToSocial:
		return &Result{Output: map[string]any{
			"success":  true,
			"action":   string(actionType),
			"platform": stringParam(cfg, "platform", ""),
		}}, nil

	case schema.ActionSaveToDatabase:
		return &Result{Output: map[string]any{
			"success": true,
			"action":  string(actionType),
			"saved":   true,
		}}, nil

	case schema.ActionSendEmail:
		return &Result{Output: map[string]any{
			"success": true,
			"action":  string(actionType),
			"sent":    true,
		}}, nil

	case "":
		return nil, schema.NewError(schema.ErrCodeConfig, "action node missing required config field actionType").
			WithNode(req.Node.NodeKey)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "unsupported action type %q", actionType).
			WithNode(req.Node.NodeKey)
	}
}

// executeWebhook posts the resolved input bag as a JSON body to config.url
// and returns the parsed response body as the node's output.
func (h *ActionHandler) executeWebhook(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config()

	rawURL := stringParam(cfg, "url", "")
	if rawURL == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "webhook action missing required config field url").
			WithNode(req.Node.NodeKey)
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "webhook action has invalid url %q", rawURL).
			WithNode(req.Node.NodeKey)
	}

	method := strings.ToUpper(stringParam(cfg, "method", http.MethodPost))

	var bodyReader io.Reader
	if method != http.MethodGet && method != http.MethodHead {
		body, err := json.Marshal(req.Inputs)
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeExecution, "webhook: failed to marshal body").
				WithNode(req.Node.NodeKey).WithCause(err)
		}
		bodyReader = strings.NewReader(string(body))
	}

	reqCtx, cancel := context.WithTimeout(ctx, h.config.DefaultTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, method, rawURL, bodyReader)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "webhook: failed to create request").
			WithNode(req.Node.NodeKey).WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if hdrs, ok := cfg["headers"]; ok {
		if hm, ok := hdrs.(map[string]any); ok {
			for k, v := range hm {
				httpReq.Header.Set(k, fmt.Sprintf("%v", v))
			}
		}
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeProvider, "webhook request failed: %v", err).
			WithNode(req.Node.NodeKey).WithCause(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, h.config.MaxResponseBody))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeProvider, "webhook: failed to read response body").
			WithNode(req.Node.NodeKey).WithCause(err)
	}

	if resp.StatusCode >= 400 {
		return nil, schema.NewErrorf(schema.ErrCodeProvider, "webhook returned %d", resp.StatusCode).
			WithNode(req.Node.NodeKey).
			WithDetails(map[string]any{"status_code": resp.StatusCode, "body": string(bodyBytes)})
	}

	// Response body parsed as JSON becomes the node output; non-JSON bodies
	// are passed through as a string.
	var parsed any
	if len(bodyBytes) == 0 {
		parsed = nil
	} else if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		parsed = string(bodyBytes)
	}

	return &Result{Output: parsed}, nil
}
