package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func analyzerBackend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, "/analyze", r.URL.Path)
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}))
}

func TestCompare(t *testing.T) {
	verdict := AnalysisResult{
		AccuracyScore:  87.5,
		Summary:        "minor deviations",
		KeyDifferences: []string{"greeting shortened"},
		Suggestions:    []string{"speak slower"},
		Reasoning:      "content matches, phrasing differs",
	}
	body, err := json.Marshal(verdict)
	require.NoError(t, err)

	srv := analyzerBackend(t, http.StatusOK, string(body))
	defer srv.Close()

	a := NewHTTPAnalyzer(testLogger(), srv.URL, time.Second)
	got, err := a.Compare(context.Background(), "customer: hello", "hello")
	require.NoError(t, err)
	assert.Equal(t, &verdict, got)
}

func TestCompareRejectsEmptyInputs(t *testing.T) {
	a := NewHTTPAnalyzer(testLogger(), "http://127.0.0.1:0", time.Second)

	_, err := a.Compare(context.Background(), "", "hello")
	assert.True(t, IsAnalysisError(err))

	_, err = a.Compare(context.Background(), "customer: hello", "   ")
	assert.True(t, IsAnalysisError(err))
}

func TestCompareClampsScore(t *testing.T) {
	srv := analyzerBackend(t, http.StatusOK, `{"accuracy_score": 150, "summary": "s"}`)
	defer srv.Close()

	a := NewHTTPAnalyzer(testLogger(), srv.URL, time.Second)
	got, err := a.Compare(context.Background(), "customer: hello", "hello")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.AccuracyScore)
	assert.NotNil(t, got.KeyDifferences)
	assert.NotNil(t, got.Suggestions)
}

func TestCompareMalformedResponseFallsBack(t *testing.T) {
	srv := analyzerBackend(t, http.StatusOK, "here is your analysis: pretty good!")
	defer srv.Close()

	a := NewHTTPAnalyzer(testLogger(), srv.URL, time.Second)
	got, err := a.Compare(context.Background(), "customer: hello", "hello")
	require.NoError(t, err)
	assert.Zero(t, got.AccuracyScore)
	assert.Contains(t, got.Reasoning, "could not parse")
}

func TestCompareBackendErrorStatus(t *testing.T) {
	srv := analyzerBackend(t, http.StatusInternalServerError, "")
	defer srv.Close()

	a := NewHTTPAnalyzer(testLogger(), srv.URL, time.Second)
	_, err := a.Compare(context.Background(), "customer: hello", "hello")
	assert.True(t, IsAnalysisError(err))
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "role labels stripped",
			in:   "customer: hello\nagent: hi there",
			want: "hello hi there",
		},
		{
			name: "chinese labels and fullwidth colon",
			in:   "客戶：你好\n客服：您好",
			want: "你好 您好",
		},
		{
			name: "punctuation removed and whitespace collapsed",
			in:   "hello,   world!  how's it\n\ngoing?",
			want: "hello world hows it going",
		},
		{
			name: "already clean",
			in:   "hello",
			want: "hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}

func TestAnalyzerProbe(t *testing.T) {
	srv := analyzerBackend(t, http.StatusOK, "{}")
	defer srv.Close()

	a := NewHTTPAnalyzer(testLogger(), srv.URL, time.Second)
	assert.True(t, a.Probe(context.Background()))

	down := NewHTTPAnalyzer(testLogger(), "http://127.0.0.1:0", time.Second)
	assert.False(t, down.Probe(context.Background()))
}
