package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fabline/internal/api"
	"fabline/internal/logging"
	"fabline/internal/testsupport"
	"fabline/internal/workflow"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManagerWithNotifier(cfg, st, logging.NewNop(), nil)
	d, err := New(cfg, st, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestAPIServerJobLifecycle(t *testing.T) {
	d := newTestDaemon(t)
	srv := d.api
	if srv == nil {
		t.Fatal("api server should be configured")
	}

	w := postJSON(t, srv.handleJobs, "/api/jobs", api.CreateJobRequest{
		ID: "j1", Code: "JOB-j1", Customer: "Acme Metals", Quantity: 100, User: "planner",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	w = httptest.NewRecorder()
	srv.handleJobs(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var list api.JobListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != "j1" {
		t.Fatalf("list jobs = %+v", list.Jobs)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/j1", nil)
	w = httptest.NewRecorder()
	srv.handleJob(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("describe = %d", w.Code)
	}
	var single api.JobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &single); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if single.Job.Code != "JOB-j1" {
		t.Fatalf("job = %+v", single.Job)
	}

	w = postJSON(t, srv.handleJob, "/api/jobs/j1/transitions", api.TransitionRequest{
		Action: api.ActionStart, User: "designer",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("transition = %d: %s", w.Code, w.Body.String())
	}
	var resp api.TransitionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if !resp.Applied {
		t.Fatal("start should apply")
	}
}

func TestAPIServerErrorMapping(t *testing.T) {
	d := newTestDaemon(t)
	srv := d.api

	w := postJSON(t, srv.handleJob, "/api/jobs/absent/transitions", api.TransitionRequest{
		Action: api.ActionStart, User: "w",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing job transition = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/absent", nil)
	rec := httptest.NewRecorder()
	srv.handleJob(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job describe = %d", rec.Code)
	}

	w = postJSON(t, srv.handleJobs, "/api/jobs", api.CreateJobRequest{
		ID: "j1", Code: "JOB-j1", Customer: "Acme", Quantity: 100, User: "planner",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	w = postJSON(t, srv.handleJob, "/api/jobs/j1/transitions", api.TransitionRequest{
		Action: "explode", User: "w",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown action = %d: %s", w.Code, w.Body.String())
	}
	w = postJSON(t, srv.handleJobs, "/api/jobs", api.CreateJobRequest{
		ID: "j1", Code: "JOB-j1", Customer: "Acme", Quantity: 100, User: "planner",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate create = %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIServerStatusAndEvents(t *testing.T) {
	d := newTestDaemon(t)
	srv := d.api

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should not report running before Start")
	}
	if status.DBPath == "" || status.LockFilePath == "" {
		t.Fatalf("status paths missing: %+v", status)
	}

	postJSON(t, srv.handleJobs, "/api/jobs", api.CreateJobRequest{
		ID: "j1", Code: "JOB-j1", Customer: "Acme", Quantity: 100, User: "planner",
	})

	req = httptest.NewRequest(http.MethodGet, "/api/events?tail=1&limit=10", nil)
	w = httptest.NewRecorder()
	srv.handleEvents(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("events = %d", w.Code)
	}
	var stream api.EventStreamResponse
	if err := json.Unmarshal(w.Body.Bytes(), &stream); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(stream.Events) != 1 || stream.Events[0].Action != "create" {
		t.Fatalf("events = %+v", stream.Events)
	}
	if stream.Next != stream.Events[0].Sequence {
		t.Fatalf("cursor = %d, want %d", stream.Next, stream.Events[0].Sequence)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token = %d", w.Code)
	}

	open := authMiddleware("", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	open(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("empty token should pass through, got %d", w.Code)
	}
}
