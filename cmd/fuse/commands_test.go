package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kalambet/fuse/internal/config"
	"github.com/kalambet/fuse/internal/scoring"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found_error"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestProfileShow(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /profiles/alice": `{"id":"alice","mbti":"INTJ","personality_traits":{"openness":80}}`,
	})

	resp, err := ts.client().get(ctx, profilePath("alice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var p map[string]any
	if err := decodeJSON(resp, &p); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if p["mbti"] != "INTJ" {
		t.Errorf("mbti = %v, want INTJ", p["mbti"])
	}
}

func TestProfilePath_Escapes(t *testing.T) {
	if got := profilePath("a b/c"); got != "/profiles/a%20b%2Fc" {
		t.Errorf("profilePath = %q", got)
	}
}

func TestParseProfiles(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantN   int
		wantErr bool
	}{
		{"single object", `{"id":"a","mbti":"INTJ"}`, 1, false},
		{"array", ` [{"id":"a"},{"name":"no id"}]`, 2, false},
		{"empty array", `[]`, 0, false},
		{"empty", "  \n", 0, true},
		{"garbage", `not json`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := parseProfiles([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(ps) != tt.wantN {
				t.Errorf("got %d profiles, want %d", len(ps), tt.wantN)
			}
		})
	}
}

func TestImportProfiles_PutsWithIDAndPostsWithout(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PUT /profiles/alice": `{"id":"alice"}`,
		"POST /profiles":      `{"id":"generated"}`,
	})

	data := []byte(`[{"id":"alice","mbti":"INTJ"},{"name":"Bob","mbti":"ENFP"}]`)
	imported, failures, err := importProfiles(ctx, ts.client(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imported != 2 || failures != 0 {
		t.Fatalf("imported=%d failures=%d, want 2/0", imported, failures)
	}

	if len(ts.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ts.requests))
	}
	if ts.requests[0].Method != "PUT" || ts.requests[0].Path != "/profiles/alice" {
		t.Errorf("first request = %s %s", ts.requests[0].Method, ts.requests[0].Path)
	}
	if ts.requests[1].Method != "POST" || ts.requests[1].Path != "/profiles" {
		t.Errorf("second request = %s %s", ts.requests[1].Method, ts.requests[1].Path)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(ts.requests[1].Body), &sent); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if sent["name"] != "Bob" {
		t.Errorf("body.name = %v, want Bob", sent["name"])
	}
}

func TestImportProfiles_CollectsFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/bad") {
			w.WriteHeader(400)
			w.Write([]byte(`{"error":{"message":"invalid profile","type":"invalid_request_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ok"}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "test", httpClient: ts.Client()}

	imported, failures, err := importProfiles(ctx, client, []byte(`[{"id":"bad"},{"id":"good"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imported != 1 || failures != 1 {
		t.Errorf("imported=%d failures=%d, want 1/1", imported, failures)
	}
}

func TestMatchQuery(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want url.Values
	}{
		{"none", matchQuery(0, 0, "", "", 0), url.Values{}},
		{"ages", matchQuery(25, 35, "", "", 10), url.Values{"min_age": {"25"}, "max_age": {"35"}, "limit": {"10"}}},
		{"location encoded", matchQuery(0, 0, "Seattle, WA", "enfp", 0), url.Values{"location": {"Seattle, WA"}, "mbti": {"enfp"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.ParseQuery(tt.got)
			if err != nil {
				t.Fatalf("ParseQuery(%q): %v", tt.got, err)
			}
			if parsed.Encode() != tt.want.Encode() {
				t.Errorf("query = %q, want %q", parsed.Encode(), tt.want.Encode())
			}
		})
	}
}

func TestMatchRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /profiles/alice/matches": `{"subject_id":"alice","total":3,"matches":[{"candidate_id":"bob","name":"Bob","result":{"overall":88,"breakdown":{"mbti":95,"personalityTraits":80,"interests":70,"location":100,"age":90},"reasoning":["Excellent MBTI compatibility"]}}]}`,
	})

	path := profilePath("alice") + "/matches?" + matchQuery(25, 0, "", "", 1)
	resp, err := ts.client().get(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Total   int `json:"total"`
		Matches []struct {
			CandidateID string `json:"candidate_id"`
			Result      struct {
				Overall int `json:"overall"`
			} `json:"result"`
		} `json:"matches"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Total != 3 || len(result.Matches) != 1 || result.Matches[0].Result.Overall != 88 {
		t.Errorf("unexpected result: %+v", result)
	}
	if got := ts.requests[0].Path; got != "/profiles/alice/matches?limit=1&min_age=25" {
		t.Errorf("request path = %q", got)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestProfileTotal(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /profiles": `{"profiles":[{"id":"a"}],"total":42}`,
	})

	total, err := profileTotal(ctx, ts.client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 42 {
		t.Errorf("total = %d, want 42", total)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestScoreColor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, colorGreen},
		{80, colorGreen},
		{79, colorYellow},
		{60, colorYellow},
		{59, colorRed},
		{0, colorRed},
	}
	for _, tt := range tests {
		if got := scoreColor(tt.score); got != tt.want {
			t.Errorf("scoreColor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"invalid or missing bearer token","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "bad-token", httpClient: ts.Client()}

	resp, err := client.get(ctx, "/profiles")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *apiError", err)
	}
	if apiErr.Type != "authentication_error" || apiErr.Message != "invalid or missing bearer token" {
		t.Errorf("apiError = %+v", apiErr)
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()}
	resp, err := client.get(ctx, "/profiles")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	err = decodeJSON(resp, nil)
	if err == nil || err.Error() != "server returned 502: upstream exploded" {
		t.Errorf("error = %v", err)
	}
}

func TestDecodeJSON_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()}
	resp, err := client.delete(ctx, profilePath("gone"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v map[string]any
	if err := decodeJSON(resp, &v); err != nil {
		t.Errorf("decodeJSON(204) = %v, want nil", err)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := pidFilePath(filepath.Join(t.TempDir(), "nested"))
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}
	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removePIDFile")
	}
}

func TestMatchingOptionsFromConfig(t *testing.T) {
	cfg := config.Config{}
	cfg.Matching.Concurrency = 8
	cfg.Matching.LocationFilter = true

	opts := matchingOptions(cfg)
	if opts.Concurrency != 8 || !opts.LocationFilter || opts.LazyFetch {
		t.Errorf("options = %+v", opts)
	}
}

func TestNewScorer_RejectsBadWeights(t *testing.T) {
	cfg := config.Config{}
	cfg.Scoring.WeightMBTI = 0.9
	cfg.Scoring.WeightTraits = 0.9
	if _, err := newScorer(cfg); err == nil {
		t.Fatal("expected error for weights summing to 1.8")
	}

	cfg.Scoring = config.ScoringConfig{}
	if _, err := newScorer(cfg); err != nil {
		t.Fatalf("zero weights should fall back to defaults: %v", err)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Storage.Driver = config.DriverSQLite

	found := false
	for _, k := range config.ShowAll(cfg) {
		if k.Key == "server.port" && k.Value == "4000" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}

func TestScoreBar(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	tests := []struct {
		score      int
		wantFilled int
	}{
		{0, 0},
		{50, 10},
		{99, 19},
		{100, 20},
		{140, 20},
		{-5, 0},
	}
	for _, tt := range tests {
		bar := scoreBar(tt.score)
		if got := strings.Count(bar, "█"); got != tt.wantFilled {
			t.Errorf("scoreBar(%d) filled = %d, want %d", tt.score, got, tt.wantFilled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != barWidth {
			t.Errorf("scoreBar(%d) width = %d, want %d", tt.score, got, barWidth)
		}
	}
}

func TestPrintResult(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var buf bytes.Buffer
	printResult(&buf, scoring.Result{
		Overall:   82,
		Breakdown: scoring.Breakdown{MBTI: 95, Traits: 70, Interests: 60, Location: 100, Age: 90},
		Reasoning: []string{"Exceptional personality type compatibility"},
	})

	out := buf.String()
	for _, want := range []string{"Overall:  82", "MBTI        95", "Location   100", "- Exceptional personality type compatibility"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
