// Package docservicetest provides an in-process fake of the remote document
// service for tests. The API host (auth and start) and the worker host
// (upload, process, download) are separate listeners, so tests can verify
// that task calls reach the worker assigned at start.
package docservicetest

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/JaimeStill/scribe/pkg/docservice"
)

// PublicKey is the credential the fake accepts.
const PublicKey = "test-public-key"

// Op names recorded in Call.Op.
const (
	OpAuth     = "auth"
	OpStart    = "start"
	OpUpload   = "upload"
	OpProcess  = "process"
	OpDownload = "download"
)

// Tool configures how the fake handles one transformation tool.
type Tool struct {
	// Output maps the uploaded bytes to the downloadable artifact. Nil echoes the input.
	Output func(in []byte) []byte
	// FailOn names the operation that responds with FailStatus instead of succeeding.
	FailOn     string
	FailStatus int
}

// Call records one request received by the fake.
type Call struct {
	Op       string
	Host     string
	Task     string
	Tool     string
	Filename string
	Size     int
	Params   map[string]any
}

type task struct {
	tool      string
	data      []byte
	filename  string
	processed bool
}

// Server is a fake remote document service.
type Server struct {
	API    *httptest.Server
	Worker *httptest.Server

	mu     sync.Mutex
	tools  map[string]Tool
	tasks  map[string]*task
	valid  map[string]bool
	issued int
	nextID int
	calls  []Call
}

// New starts a fake with no tools registered.
func New() *Server {
	s := &Server{
		tools: make(map[string]Tool),
		tasks: make(map[string]*task),
		valid: make(map[string]bool),
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/auth", s.auth)
	api.HandleFunc("GET /v1/start/{tool}", s.start)
	s.API = httptest.NewServer(api)

	worker := http.NewServeMux()
	worker.HandleFunc("POST /v1/upload", s.upload)
	worker.HandleFunc("POST /v1/process", s.process)
	worker.HandleFunc("GET /v1/download/{task}", s.download)
	s.Worker = httptest.NewServer(worker)

	return s
}

// Close shuts down both listeners.
func (s *Server) Close() {
	s.API.Close()
	s.Worker.Close()
}

// Handle registers behavior for tool.
func (s *Server) Handle(tool string, t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[tool] = t
}

// Config returns a finalized-compatible client config pointing at the fake.
func (s *Server) Config() *docservice.Config {
	return &docservice.Config{
		PublicKey:       PublicKey,
		BaseURL:         s.API.URL + "/v1",
		WorkerScheme:    "http",
		Timeout:         "10s",
		MaxDownloadSize: "10MB",
	}
}

// WorkerHost returns the host:port the fake assigns to every task.
func (s *Server) WorkerHost() string {
	return strings.TrimPrefix(s.Worker.URL, "http://")
}

// ExpireTokens revokes every issued token; subsequent calls get 401.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.valid)
}

// Calls returns every recorded call in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsFor returns the recorded calls for op.
func (s *Server) CallsFor(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// AuthCount returns the number of successful token exchanges.
func (s *Server) AuthCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

func (s *Server) record(c Call) {
	s.calls = append(s.calls, c)
}

func (s *Server) auth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpAuth, Host: r.Host})

	if req.PublicKey != PublicKey {
		http.Error(w, `{"error":"invalid public key"}`, http.StatusUnauthorized)
		return
	}

	s.issued++
	token := fmt.Sprintf("token-%d", s.issued)
	s.valid[token] = true
	writeJSON(w, map[string]string{"token": token})
}

// authorized reports whether r carries a valid bearer token. Callers hold s.mu.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || !s.valid[token] {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

// failing writes the configured failure status when tool fails on op. Callers hold s.mu.
func (s *Server) failing(w http.ResponseWriter, tool, op string) bool {
	t := s.tools[tool]
	if t.FailOn != op {
		return false
	}
	status := t.FailStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	http.Error(w, fmt.Sprintf(`{"error":"%s %s failed"}`, tool, op), status)
	return true
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	tool := r.PathValue("tool")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpStart, Host: r.Host, Tool: tool})

	if !s.authorized(w, r) {
		return
	}
	if _, ok := s.tools[tool]; !ok {
		http.Error(w, `{"error":"unknown tool"}`, http.StatusNotFound)
		return
	}
	if s.failing(w, tool, OpStart) {
		return
	}

	s.nextID++
	id := fmt.Sprintf("task-%d", s.nextID)
	s.tasks[id] = &task{tool: tool}

	writeJSON(w, map[string]string{"task": id, "server": s.WorkerHost()})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad multipart", http.StatusBadRequest)
		return
	}
	id := r.FormValue("task")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	call := Call{Op: OpUpload, Host: r.Host, Task: id, Filename: header.Filename, Size: len(data)}
	if ok {
		call.Tool = t.tool
	}
	s.record(call)

	if !s.authorized(w, r) {
		return
	}
	if !ok {
		http.Error(w, `{"error":"unknown task"}`, http.StatusNotFound)
		return
	}
	if s.failing(w, t.tool, OpUpload) {
		return
	}

	t.data = data
	t.filename = header.Filename
	writeJSON(w, map[string]string{"server_filename": "srv-" + id})
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	id, _ := payload["task"].(string)
	tool, _ := payload["tool"].(string)
	params := maps.Clone(payload)
	delete(params, "task")
	delete(params, "tool")
	delete(params, "files")

	var filename string
	if files, ok := payload["files"].([]any); ok && len(files) == 1 {
		if f, ok := files[0].(map[string]any); ok {
			filename, _ = f["filename"].(string)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpProcess, Host: r.Host, Task: id, Tool: tool, Filename: filename, Params: params})

	if !s.authorized(w, r) {
		return
	}
	t, ok := s.tasks[id]
	if !ok || t.tool != tool || t.data == nil {
		http.Error(w, `{"error":"task not ready"}`, http.StatusBadRequest)
		return
	}
	if s.failing(w, tool, OpProcess) {
		return
	}

	t.processed = true
	writeJSON(w, map[string]string{"status": "TaskSuccess"})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task")

	s.mu.Lock()
	t, ok := s.tasks[id]
	call := Call{Op: OpDownload, Host: r.Host, Task: id}
	if ok {
		call.Tool = t.tool
	}
	s.record(call)

	if !s.authorized(w, r) {
		s.mu.Unlock()
		return
	}
	if !ok || !t.processed {
		s.mu.Unlock()
		http.Error(w, `{"error":"task not processed"}`, http.StatusNotFound)
		return
	}
	if s.failing(w, t.tool, OpDownload) {
		s.mu.Unlock()
		return
	}

	out := t.data
	if fn := s.tools[t.tool].Output; fn != nil {
		out = fn(t.data)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/octet-stream")
	for len(out) > 0 {
		n := min(len(out), 4096)
		w.Write(out[:n])
		out = out[n:]
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
