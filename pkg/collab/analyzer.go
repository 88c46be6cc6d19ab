package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	rolePrefixRe = regexp.MustCompile(`(?im)^(客戶|客服|customer|agent)\s*[：:]\s*`)
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// HTTPAnalyzer is a thin client for the conversation-quality backend.
// It submits normalized script/transcript pairs and parses the
// structured verdict, degrading to a fixed zero-score verdict when the
// backend's response cannot be parsed.
type HTTPAnalyzer struct {
	endpoint string
	client   *http.Client
	logger   log.Logger
}

func NewHTTPAnalyzer(logger log.Logger, endpoint string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type analyzeRequest struct {
	Original    string `json:"original"`
	Transcribed string `json:"transcribed"`
}

func (a *HTTPAnalyzer) Compare(ctx context.Context, original, transcribed string) (*AnalysisResult, error) {
	if strings.TrimSpace(original) == "" {
		return nil, NewAnalysisError(errors.New("original script is empty"))
	}
	if strings.TrimSpace(transcribed) == "" {
		return nil, NewAnalysisError(errors.New("transcribed text is empty"))
	}

	body, err := json.Marshal(analyzeRequest{
		Original:    normalizeText(original),
		Transcribed: normalizeText(transcribed),
	})
	if err != nil {
		return nil, NewAnalysisError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, NewAnalysisError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, NewAnalysisError(errors.Wrap(err, "analysis backend unreachable"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewAnalysisError(fmt.Errorf("analysis backend returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAnalysisError(err)
	}

	result := a.parseResponse(raw)
	a.logger.Debug("analysis finished", "accuracy", result.AccuracyScore)
	return result, nil
}

// parseResponse decodes the backend verdict, filling defaults and
// clamping the score. A malformed response yields the fallback verdict
// rather than an error.
func (a *HTTPAnalyzer) parseResponse(raw []byte) *AnalysisResult {
	var result AnalysisResult
	if err := json.Unmarshal(bytes.TrimSpace(raw), &result); err != nil {
		a.logger.Warn("failed to parse analysis response, substituting fallback verdict",
			"err", err,
			"response", string(raw))
		return fallbackResult(err.Error())
	}
	if result.Summary == "" {
		result.Summary = "analysis completed"
	}
	if result.KeyDifferences == nil {
		result.KeyDifferences = []string{}
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	result.AccuracyScore = clampScore(result.AccuracyScore)
	return &result
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// normalizeText strips role labels and punctuation and collapses
// whitespace, so the backend compares spoken content only.
func normalizeText(text string) string {
	text = rolePrefixRe.ReplaceAllString(text, "")
	text = punctRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.TrimSpace(text)
}

func (a *HTTPAnalyzer) Probe(ctx context.Context) bool {
	return probeEndpoint(ctx, a.client, a.endpoint+"/healthz")
}
