package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mawsool/cx-insights/backend/internal/metrics"
	"github.com/mawsool/cx-insights/backend/internal/types"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel   = "gemini-2.0-flash"

	// The model only needs recent history to see trends
	maxPromptPoints = 50
)

var (
	// ErrNoAPIKey means the analyzer was constructed without a key and
	// insight requests cannot be served.
	ErrNoAPIKey = errors.New("insight: no API key configured")

	// ErrQuotaExceeded maps the upstream 429 so callers can surface a
	// retry-later message instead of a generic failure.
	ErrQuotaExceeded = errors.New("insight: quota exceeded")

	// ErrAuthFailed maps upstream 401/403 responses.
	ErrAuthFailed = errors.New("insight: authentication failed")
)

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

const systemInstruction = `You are a senior telecom and network quality engineer.
Analyze the Mean Opinion Score (MOS) and traffic telemetry from a cloud contact center.

Organize your output into clear sections using Markdown headers, use bullet
points for observations and bold text for critical metrics or timestamps.

Expected sections: an executive quality summary, a detailed trend analysis of
intervals where MOS dipped below 4.0 or traffic spikes affected quality,
technical root cause hypotheses (jitter, packet loss, codec negotiation,
ISP peering), and three concrete engineering recommendations.

Maintain a professional, data-driven tone.`

// Analyzer produces narrative quality analysis from a MOS time series
// by calling the Gemini generateContent API.
type Analyzer struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	logger     zerolog.Logger
}

func NewAnalyzer(apiKey string, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		logger:     logger.With().Str("component", "insight").Logger(),
	}
}

// AnalyzeMOSPerformance summarizes the most recent quality telemetry.
// Transient upstream failures are retried with exponential backoff;
// quota and auth failures are returned as distinguishable errors.
func (a *Analyzer) AnalyzeMOSPerformance(ctx context.Context, data []types.MOSDataPoint) (string, error) {
	if a.apiKey == "" {
		metrics.Get().RecordInsightRequest(true)
		return "", ErrNoAPIKey
	}

	prompt := buildPrompt(data)

	var analysis string
	operation := func() error {
		text, err := a.generateContent(ctx, prompt)
		if err != nil {
			return err
		}
		analysis = text
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		metrics.Get().RecordInsightRequest(true)
		a.logger.Error().Err(err).Msg("insight analysis failed")
		return "", err
	}
	metrics.Get().RecordInsightRequest(false)
	return analysis, nil
}

// buildPrompt renders the newest points, oldest first, one line each.
func buildPrompt(data []types.MOSDataPoint) string {
	if len(data) > maxPromptPoints {
		data = data[len(data)-maxPromptPoints:]
	}
	var sb strings.Builder
	sb.WriteString("TELEMETRY DATA FOR ANALYSIS:\n")
	for _, d := range data {
		fmt.Fprintf(&sb, "[%s] MOS: %.2f, Volume: %d\n", d.Timestamp, d.MOS, d.ConversationsCount)
	}
	return sb.String()
}

func (a *Analyzer) generateContent(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: prompt}}, Role: "user"}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach Gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Retryable, surfaces as ErrQuotaExceeded once retries run out
		return "", ErrQuotaExceeded
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", backoff.Permanent(ErrAuthFailed)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", backoff.Permanent(fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if geminiResp.Error != nil {
		return "", backoff.Permanent(fmt.Errorf("gemini API error: %s", geminiResp.Error.Message))
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", backoff.Permanent(errors.New("empty response from Gemini"))
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
