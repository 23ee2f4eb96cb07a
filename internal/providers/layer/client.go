package layer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("layer: api key is required")

const (
	defaultAPIURL = "https://api.app.layer.ai/v1/graphql"

	maxAttempts      = 3
	retryBaseDelay   = time.Second
	retryMaxDelay    = 10 * time.Second
	defaultTimeout   = 60 * time.Second
	maxErrorBodySize = 200
)

// Layer.ai GraphQL operations, validated against the live schema. Result
// unions carry either the typed payload or an inline Error object, so every
// response is inspected for __typename before the payload fields are read.
const (
	queryWorkspaceUsage = `
		query GetWorkspaceUsage($input: GetWorkspaceUsageInput!) {
			getWorkspaceUsage(input: $input) {
				__typename
				... on WorkspaceUsage {
					entitlement {
						balance
						hasAccess
					}
				}
				... on Error {
					code
					message
				}
			}
		}
	`

	queryInferencesByID = `
		query GetInferencesById($input: GetInferencesByIdInput!) {
			getInferencesById(input: $input) {
				__typename
				... on InferencesResult {
					inferences {
						id
						status
						errorCode
						files {
							id
							status
							url
						}
					}
				}
				... on Error {
					code
					message
				}
			}
		}
	`

	mutationGenerateImages = `
		mutation GenerateImages($input: GenerateImagesInput!) {
			generateImages(input: $input) {
				__typename
				... on Inference {
					id
					status
					files {
						id
						status
						url
					}
				}
				... on Error {
					type
					code
					message
				}
			}
		}
	`
)

// Options configures the Layer.ai GraphQL client.
type Options struct {
	APIURL         string
	APIKey         string
	WorkspaceID    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration

	// Sleep is the retry delay hook. Tests inject a fake to avoid real
	// backoff waits; production leaves it nil.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client performs GraphQL calls to the Layer.ai image generation API.
type Client struct {
	apiURL      string
	apiKey      string
	workspaceID string
	httpClient  *http.Client
	logger      *infra.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type fileResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

type inferenceResult struct {
	Typename  string       `json:"__typename"`
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	ErrorCode string       `json:"errorCode"`
	Files     []fileResult `json:"files"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
}

type generateImagesData struct {
	GenerateImages inferenceResult `json:"generateImages"`
}

type inferencesByIDData struct {
	GetInferencesByID struct {
		Typename   string            `json:"__typename"`
		Inferences []inferenceResult `json:"inferences"`
		Code       string            `json:"code"`
		Message    string            `json:"message"`
	} `json:"getInferencesById"`
}

type workspaceUsageData struct {
	GetWorkspaceUsage struct {
		Typename    string `json:"__typename"`
		Entitlement struct {
			Balance   int  `json:"balance"`
			HasAccess bool `json:"hasAccess"`
		} `json:"entitlement"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"getWorkspaceUsage"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.WorkspaceID) == "" {
		return nil, errors.New("layer: workspace id is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Client{
		apiURL:      apiURL,
		apiKey:      strings.TrimSpace(opts.APIKey),
		workspaceID: strings.TrimSpace(opts.WorkspaceID),
		httpClient:  httpClient,
		logger:      logger,
		sleep:       sleep,
	}, nil
}

// WorkspaceID returns the configured workspace identifier.
func (c *Client) WorkspaceID() string {
	return c.workspaceID
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit starts an image generation and returns the remote task handle.
// The remote may report a terminal status immediately; callers should
// check Status.Terminal() before polling.
func (c *Client) Submit(ctx context.Context, prompt, styleID string) (domain.GenerationTask, error) {
	var task domain.GenerationTask
	if !c.HasCredentials() {
		return task, ErrMissingAPIKey
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return task, errors.New("layer: prompt is required")
	}
	if strings.TrimSpace(styleID) == "" {
		return task, errors.New("layer: style id is required")
	}

	input := map[string]any{
		"workspaceId": c.workspaceID,
		"styleId":     styleID,
		"prompt":      prompt,
	}
	raw, err := c.execute(ctx, mutationGenerateImages, map[string]any{"input": input})
	if err != nil {
		return task, err
	}

	var decoded generateImagesData
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return task, fmt.Errorf("layer: decode generation response: %w", err)
	}
	result := decoded.GenerateImages
	if result.Typename == "Error" {
		return task, fmt.Errorf("layer: %w: %s", domain.ErrGenerationFailed, result.Message)
	}
	if result.ID == "" {
		return task, fmt.Errorf("layer: %w: no inference id returned", domain.ErrGenerationFailed)
	}

	task = domain.GenerationTask{
		ID:     result.ID,
		Status: mapRemoteStatus(result.Status),
	}
	applyFiles(&task, result.Files)

	c.logger.Info().
		Str("task_id", task.ID).
		Str("status", result.Status).
		Msg("layer: generation submitted")
	return task, nil
}

// Status fetches the current state of a generation task. Transient fetch
// failures degrade to a processing snapshot so the poller keeps going.
func (c *Client) Status(ctx context.Context, taskID string) (domain.GenerationTask, error) {
	task := domain.GenerationTask{ID: taskID, Status: domain.TaskStatusProcessing}
	if taskID == "" {
		return task, errors.New("layer: task id is required")
	}

	raw, err := c.execute(ctx, queryInferencesByID, map[string]any{
		"input": map[string]any{"inferenceIds": []string{taskID}},
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) || ctx.Err() != nil {
			return task, err
		}
		c.logger.Debug().Err(err).Str("task_id", taskID).Msg("layer: status fetch failed, treating as in progress")
		task.ErrorMessage = err.Error()
		return task, nil
	}

	var decoded inferencesByIDData
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return task, fmt.Errorf("layer: decode status response: %w", err)
	}
	result := decoded.GetInferencesByID
	if result.Typename == "Error" {
		task.Status = domain.TaskStatusFailed
		task.ErrorMessage = result.Message
		return task, nil
	}
	if len(result.Inferences) == 0 {
		return task, nil
	}

	inference := result.Inferences[0]
	task.Status = mapRemoteStatus(inference.Status)
	task.ErrorMessage = inference.ErrorCode
	applyFiles(&task, inference.Files)
	return task, nil
}

// Credits fetches the workspace credit balance. Any failure blocks spend
// by reporting a zero balance without access rather than propagating the
// error, so a flaky usage endpoint can never start a paid generation.
func (c *Client) Credits(ctx context.Context) (domain.WorkspaceCredits, error) {
	blocked := domain.WorkspaceCredits{WorkspaceID: c.workspaceID, Available: 0, HasAccess: false}

	raw, err := c.execute(ctx, queryWorkspaceUsage, map[string]any{
		"input": map[string]any{
			"workspaceId": c.workspaceID,
			"filtering":   []any{},
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) || ctx.Err() != nil {
			return blocked, err
		}
		c.logger.Warn().Err(err).Msg("layer: workspace usage unavailable, blocking spend")
		return blocked, nil
	}

	var decoded workspaceUsageData
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Warn().Err(err).Msg("layer: workspace usage unreadable, blocking spend")
		return blocked, nil
	}
	result := decoded.GetWorkspaceUsage
	if result.Typename == "Error" {
		c.logger.Warn().Str("code", result.Code).Str("message", result.Message).Msg("layer: workspace usage error, blocking spend")
		return blocked, nil
	}

	credits := domain.WorkspaceCredits{
		WorkspaceID: c.workspaceID,
		Available:   result.Entitlement.Balance,
		HasAccess:   result.Entitlement.HasAccess,
	}
	c.logger.Info().
		Int("credits", credits.Available).
		Bool("has_access", credits.HasAccess).
		Msg("layer: workspace credits retrieved")
	return credits, nil
}

// Download fetches generated image bytes from the CDN URL on a task.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("layer: invalid image url: %s", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("layer: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("layer: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("layer: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("layer: read image: %w", err)
	}
	return data, nil
}

// execute posts one GraphQL operation and returns the raw data payload.
// Retries cover transport errors and 5xx responses with exponential
// backoff. Authentication failures are never retried: the credential will
// not become valid between attempts.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("layer: encode request: %w", err)
	}

	var lastErr error
	delay := retryBaseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = min(delay*2, retryMaxDelay)
		}

		raw, retryable, err := c.executeOnce(ctx, body)
		if err == nil {
			return raw, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		c.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Msg("layer: request failed, will retry")
	}
	return nil, fmt.Errorf("layer: request failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) executeOnce(ctx context.Context, body []byte) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("layer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("layer: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("layer: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, fmt.Errorf("layer: %w: invalid api key (status 401)", domain.ErrAuthentication)
	case resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("layer: %w: access forbidden (status 403)", domain.ErrAuthentication)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("layer: status %d: %s", resp.StatusCode, truncate(raw, maxErrorBodySize))
	case resp.StatusCode >= 300:
		return nil, false, fmt.Errorf("layer: status %d: %s", resp.StatusCode, truncate(raw, maxErrorBodySize))
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false, fmt.Errorf("layer: decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return nil, false, fmt.Errorf("layer: api error: %s", envelope.Errors[0].Message)
	}
	return envelope.Data, false, nil
}

// mapRemoteStatus translates Layer.ai inference states. The API reports
// IN_PROGRESS, COMPLETE, FAILED, CANCELLED and DELETED; anything
// unrecognized is treated as still in progress.
func mapRemoteStatus(remote string) domain.TaskStatus {
	switch remote {
	case "COMPLETE":
		return domain.TaskStatusCompleted
	case "FAILED", "CANCELLED", "DELETED":
		return domain.TaskStatusFailed
	case "IN_PROGRESS":
		return domain.TaskStatusProcessing
	default:
		return domain.TaskStatusProcessing
	}
}

// applyFiles copies the first file onto the task. A COMPLETE file with a
// URL marks the task completed even when the parent inference still says
// in progress, matching the API's eventual-consistency between the two.
func applyFiles(task *domain.GenerationTask, files []fileResult) {
	if len(files) == 0 {
		return
	}
	first := files[0]
	task.ImageID = first.ID
	task.ImageURL = first.URL
	if first.Status == "COMPLETE" && first.URL != "" {
		task.Status = domain.TaskStatusCompleted
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(raw []byte, n int) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > n {
		return s[:n]
	}
	return s
}
