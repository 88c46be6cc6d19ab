package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/audio"
)

const (
	maxTranscribeBytes = 25 * 1024 * 1024
	minTranscribeBytes = 1024
)

// HTTPTranscriber is a thin client for a speech-to-text backend.
type HTTPTranscriber struct {
	endpoint string
	client   *http.Client
	logger   log.Logger
}

func NewHTTPTranscriber(logger log.Logger, endpoint string, timeout time.Duration) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type transcribeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcribe uploads the audio file and returns the transcript and a
// confidence score in [0,1]. An empty transcript is not an error; the
// pipeline handles that case with a fixed zero-score verdict.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, a *audio.Artifact) (string, float64, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return "", 0, NewTranscriptionError(errors.Wrapf(err, "audio file %s is unreadable", a.Path))
	}
	if info.Size() > maxTranscribeBytes {
		return "", 0, NewTranscriptionError(fmt.Errorf("audio file is %.1fMB, above the 25MB limit", float64(info.Size())/1024/1024))
	}
	if info.Size() < minTranscribeBytes {
		return "", 0, NewTranscriptionError(errors.New("audio file is too small to contain speech"))
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return "", 0, NewTranscriptionError(err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(a.Path))
	if err != nil {
		return "", 0, NewTranscriptionError(err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", 0, NewTranscriptionError(err)
	}
	if err := mw.Close(); err != nil {
		return "", 0, NewTranscriptionError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/transcribe", &body)
	if err != nil {
		return "", 0, NewTranscriptionError(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", 0, NewTranscriptionError(errors.Wrap(err, "transcription backend unreachable"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, NewTranscriptionError(fmt.Errorf("transcription backend returned status %d", resp.StatusCode))
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, NewTranscriptionError(errors.Wrap(err, "failed to decode transcription response"))
	}

	text := strings.TrimSpace(out.Text)
	t.logger.Debug("transcription finished",
		"chars", len(text),
		"confidence", out.Confidence)
	return text, out.Confidence, nil
}

func (t *HTTPTranscriber) Probe(ctx context.Context) bool {
	return probeEndpoint(ctx, t.client, t.endpoint+"/healthz")
}
