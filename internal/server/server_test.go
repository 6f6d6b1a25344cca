package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsfeatures"
	"github.com/jward/tsfeatures/internal/observability"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetrics()
	s := New(tsfeatures.NewAnalyzer(), append([]Option{WithMetrics(m)}, opts...)...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestProcess_Success(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, out := post(t, ts.URL+"/process",
		`{"filename":"a.ts","fileContents":"const x = y satisfies T;"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.EqualValues(t, 2, out["version"])
	assert.Greater(t, out["processTime"], float64(0))
	assert.Equal(t, map[string]any{"SatisfiesExpression": true}, out["features"])
}

func TestProcess_AnyPath(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	for _, path := range []string{"/", "/process", "/some/other/path"} {
		resp, out := post(t, ts.URL+path, `{"filename":"a.ts","fileContents":"let x = 1;"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, map[string]any{}, out["features"], path)
	}
}

func TestProcess_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"not json", `this is not json`, "decode request"},
		{"empty body", ``, "decode request"},
		{"too large", `{"filename":"a.ts","fileContents":"` + strings.Repeat("x", 200) + `"}`, ErrBodyTooLarge.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts, _ := newTestServer(t, WithMaxBodyBytes(128))

			resp, out := post(t, ts.URL, tt.body)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			require.Contains(t, out, "Error")
			assert.Len(t, out, 1)
			assert.Contains(t, out["Error"], tt.wantMsg)
		})
	}
}

func TestProcess_SyntaxErrorsStillSucceed(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, out := post(t, ts.URL, `{"filename":"broken.ts","fileContents":"class { accessor x = ; }}}"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, "features")
	assert.NotContains(t, out, "Error")
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"filename":"a.ts","fileContents":""}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))

	resp, _ = post(t, ts.URL, `{"filename":"a.ts","fileContents":""}`)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	post(t, ts.URL, `{"filename":"a.ts","fileContents":"class C { accessor x = 1; }"}`)
	post(t, ts.URL, `nope`)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	body := buf.String()
	assert.Contains(t, body, `tsfeatures_requests_total{outcome="ok"} 1`)
	assert.Contains(t, body, `tsfeatures_requests_total{outcome="error"} 1`)
	assert.Contains(t, body, `tsfeatures_features_detected_total{feature="AccessorKeyword"} 1`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(tsfeatures.NewAnalyzer())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
