package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const testJobID = "job-1"

// fakeEngine simulates the engine REST API.
type fakeEngine struct {
	mu sync.Mutex

	loginStatus int
	loginDelay  time.Duration
	logins      int
	token       string

	submitStatus  int
	submitDetail  string
	rejectSubmits int
	submits       int

	states    []JobState
	pollTimes []time.Time
	jobError  string

	schema      []map[string]any
	rows        []json.RawMessage
	rowCount    int
	stopRowsAt  int
	resultCalls int
	offsets     []int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		states:     []JobState{JobCompleted},
		stopRowsAt: -1,
	}
}

func (f *fakeEngine) withRows(rows ...string) *fakeEngine {
	for _, r := range rows {
		f.rows = append(f.rows, json.RawMessage(r))
	}
	f.rowCount = len(f.rows)
	return f
}

func (f *fakeEngine) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeEngine) counts() (logins, submits, polls, results int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.submits, len(f.pollTimes), f.resultCalls
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/apiv2/login":
		f.login(w, r)
	case !f.authorized(r):
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"errorMessage": "invalid token"})
	case r.Method == http.MethodPost && r.URL.Path == "/api/v3/sql":
		f.submit(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v3/job/"+testJobID:
		f.poll(w)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v3/job/"+testJobID+"/results":
		f.results(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeEngine) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	if f.loginDelay > 0 {
		time.Sleep(f.loginDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginStatus != 0 {
		writeTestJSON(w, f.loginStatus, map[string]string{"errorMessage": "Login failed"})
		return
	}
	if body.UserName != "bigdata" || body.Password != "secret" {
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"errorMessage": "bad credentials"})
		return
	}
	f.token = "tok-" + strconv.Itoa(f.logins)
	writeTestJSON(w, http.StatusOK, map[string]string{"token": f.token})
}

func (f *fakeEngine) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token != "" && r.Header.Get("Authorization") == "Bearer "+f.token
}

func (f *fakeEngine) submit(w http.ResponseWriter, r *http.Request) {
	var body sqlRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.rejectSubmits > 0 {
		f.rejectSubmits--
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"errorMessage": "token expired"})
		return
	}
	if f.submitStatus != 0 {
		writeTestJSON(w, f.submitStatus, map[string]string{"errorMessage": f.submitDetail})
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]string{"id": testJobID})
}

func (f *fakeEngine) poll(w http.ResponseWriter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollTimes = append(f.pollTimes, time.Now())
	idx := len(f.pollTimes) - 1
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	writeTestJSON(w, http.StatusOK, map[string]any{
		"jobState":     f.states[idx],
		"rowCount":     f.rowCount,
		"errorMessage": f.jobError,
	})
}

func (f *fakeEngine) results(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	f.offsets = append(f.offsets, offset)

	available := len(f.rows)
	if f.stopRowsAt >= 0 && f.stopRowsAt < available {
		available = f.stopRowsAt
	}
	end := min(offset+limit, available)
	page := []json.RawMessage{}
	if offset < end {
		page = f.rows[offset:end]
	}
	writeTestJSON(w, http.StatusOK, map[string]any{
		"rowCount": f.rowCount,
		"schema":   f.schema,
		"rows":     page,
	})
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testConfig returns a fast-polling config pointed at srv.
func testConfig(srv *httptest.Server) Config {
	return Config{
		Host:         srv.URL,
		Credentials:  Credentials{Username: "bigdata", Password: "secret"},
		PollInterval: 20 * time.Millisecond,
		MaxWait:      5 * time.Second,
	}
}

func schemaOf(cols ...string) []map[string]any {
	out := make([]map[string]any, len(cols))
	for i, c := range cols {
		name, typ, _ := strings.Cut(c, ":")
		out[i] = map[string]any{"name": name, "type": map[string]string{"name": typ}}
	}
	return out
}

func rowJSON(id int, startAt string) string {
	return fmt.Sprintf(`{"id":%d,"startAt":%q}`, id, startAt)
}
