package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/audio"
	"github.com/voicelab/callcheck/pkg/script"
)

// HTTPSynthesizer is a thin client for a speech-synthesis backend that
// renders a dialogue script into one audio file.
type HTTPSynthesizer struct {
	endpoint string
	client   *http.Client
	logger   log.Logger
}

func NewHTTPSynthesizer(logger log.Logger, endpoint string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type synthesizeRequest struct {
	Utterances []script.Line `json:"utterances"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, lines []script.Line) (*audio.Artifact, error) {
	if len(lines) == 0 {
		return nil, NewSynthesisError(errors.New("no dialogue lines to synthesize"))
	}

	body, err := json.Marshal(synthesizeRequest{Utterances: lines})
	if err != nil {
		return nil, NewSynthesisError(errors.Wrap(err, "failed to encode synthesis request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, NewSynthesisError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSynthesisError(errors.Wrap(err, "synthesis backend unreachable"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewSynthesisError(fmt.Errorf("synthesis backend returned status %d", resp.StatusCode))
	}

	var artifact audio.Artifact
	if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
		return nil, NewSynthesisError(errors.Wrap(err, "failed to decode synthesis response"))
	}

	s.logger.Debug("synthesized dialogue audio",
		"lines", len(lines),
		"duration", artifact.Duration,
		"format", artifact.Format)
	return &artifact, nil
}

func (s *HTTPSynthesizer) Probe(ctx context.Context) bool {
	return probeEndpoint(ctx, s.client, s.endpoint+"/healthz")
}

// probeEndpoint reports whether a collaborator's health endpoint answers 200.
func probeEndpoint(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
