package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kshou/lualab/internal/config"
	"github.com/kshou/lualab/internal/questions"
	"github.com/kshou/lualab/internal/sandbox"
	"github.com/kshou/lualab/internal/storage/sqlite"
)

type stubSource struct {
	qs []questions.Question
}

func (s *stubSource) Fetch(ctx context.Context) ([]questions.Question, error) {
	return s.qs, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	src := &stubSource{qs: []questions.Question{
		{ID: "1", Title: "Hello", Description: "Print hello."},
		{ID: "2", Title: "Sum", Description: "Sum two numbers."},
	}}
	repo := questions.NewRepository(src, "", time.Minute)

	cfg := &config.Config{}
	runner := sandbox.NewRunner(sandbox.DefaultPolicy(), 2*time.Second)
	return New(cfg, runner, repo, nil, store, nil)
}

func postJSON(t *testing.T, handler http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndStatus(t *testing.T) {
	s := testServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["status"] != "ok" || status["ai"] != false || status["questions"] != true {
		t.Errorf("unexpected status: %v", status)
	}
}

func TestHandleExecute(t *testing.T) {
	s := testServer(t)

	rec := postJSON(t, s.Router(), "/api/execute", `{"code":"print(1+2)"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp executeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Output != "3\n" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleExecuteWithInputs(t *testing.T) {
	s := testServer(t)

	body := `{"code":"local name = read(\"name: \")\nprint(\"hi \" .. name)","inputs":["kai"]}`
	rec := postJSON(t, s.Router(), "/api/execute", body)

	var resp executeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("execution failed: %+v", resp)
	}
	if resp.Output != "name: kai\nhi kai\n" {
		t.Errorf("output = %q", resp.Output)
	}
}

func TestHandleExecuteRejectsForbiddenCode(t *testing.T) {
	s := testServer(t)

	rec := postJSON(t, s.Router(), "/api/execute", `{"code":"load(\"print(1)\")()"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp executeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("expected validation rejection, got %+v", resp)
	}
}

func TestHandleExecuteRejectsOversizedRequests(t *testing.T) {
	s := testServer(t)

	// Syntactically invalid on purpose: the limit check must reject the
	// request before the validator would ever see the source.
	hugeCode := strings.Repeat("⟨", sandbox.MaxSourceLen+1)

	tooManyInputs := make([]string, sandbox.MaxInputs+1)
	for i := range tooManyInputs {
		tooManyInputs[i] = "x"
	}

	tests := []struct {
		name    string
		code    string
		inputs  []string
		wantErr string
	}{
		{"code over limit", hugeCode, nil, "source too long"},
		{"too many inputs", "print(1)", tooManyInputs, "too many inputs"},
		{"input over limit", "print(1)", []string{strings.Repeat("y", sandbox.MaxInputLen+1)}, "input 1 too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(executeRequest{Code: tt.code, Inputs: tt.inputs})
			if err != nil {
				t.Fatal(err)
			}
			rec := postJSON(t, s.Router(), "/api/execute", string(body))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			var resp executeResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success {
				t.Error("oversized request must not succeed")
			}
			if !strings.Contains(resp.Error, tt.wantErr) {
				t.Errorf("error = %q, want substring %q", resp.Error, tt.wantErr)
			}
		})
	}
}

func TestHandleExecuteBadJSON(t *testing.T) {
	s := testServer(t)

	rec := postJSON(t, s.Router(), "/api/execute", `{"code":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleValidate(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"clean", `print("ok")`, true},
		{"banned call", `dofile("x.lua")`, false},
		{"syntax error", `print(`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, s.Router(), "/api/validate", `{"code":`+jsonString(tt.code)+`}`)
			var resp validateResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success != tt.valid {
				t.Errorf("success = %v, want %v (error: %s)", resp.Success, tt.valid, resp.Error)
			}
			if !tt.valid && resp.Error == "" {
				t.Error("rejection should carry an error message")
			}
		})
	}
}

func TestHandleListQuestions(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp questionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Questions) != 2 {
		t.Errorf("got %d questions, want 2", len(resp.Questions))
	}
}

func TestHandleGetQuestion(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/questions/2", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/questions/99", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing question status = %d, want 404", rec.Code)
	}
}

func TestHandleSubmitAndListScores(t *testing.T) {
	s := testServer(t)

	body := `{"student_name":"alice","question_id":"1","question_title":"Hello",
		"overall_score":80,"time_complexity":8,"space_complexity":8,
		"readability":7,"stability":9,"code":"print(1)"}`
	rec := postJSON(t, s.Router(), "/api/scores/submit", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}

	var submitResp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &submitResp); err != nil {
		t.Fatal(err)
	}
	if !submitResp["recorded"] {
		t.Error("first submission should be recorded")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scores/alice", nil)
	listRec := httptest.NewRecorder()
	s.Router().ServeHTTP(listRec, req)

	var listResp struct {
		Student string           `json:"student"`
		Scores  []map[string]any `json:"scores"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &listResp); err != nil {
		t.Fatal(err)
	}
	if listResp.Student != "alice" || len(listResp.Scores) != 1 {
		t.Errorf("unexpected listing: %+v", listResp)
	}
}

func TestHandleSubmitScoreMissingFields(t *testing.T) {
	s := testServer(t)

	rec := postJSON(t, s.Router(), "/api/scores/submit", `{"overall_score":50}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAIEndpointsUnconfigured(t *testing.T) {
	s := testServer(t)

	rec := postJSON(t, s.Router(), "/api/ai/analyze", `{"code":"print(1)"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPlaygroundWebSocket(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/playground/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsIncoming{Type: "run", Code: `print("ws ok")`}); err != nil {
		t.Fatal(err)
	}

	var out wsOutgoing
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatal(err)
	}
	if out.Type != "result" || out.Output != "ws ok\n" {
		t.Errorf("unexpected message: %+v", out)
	}

	// Validation over the same connection.
	if err := conn.WriteJSON(wsIncoming{Type: "validate", Code: `goto done`}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatal(err)
	}
	if out.Type != "validated" || out.Valid {
		t.Errorf("unexpected message: %+v", out)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
