// Package docservice is a client for the remote document-transformation service.
// A transformation runs as a task: Start assigns a task id and worker host,
// then Upload, Process and Download run against that worker.
package docservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/JaimeStill/scribe/pkg/formatting"
)

// Client performs the start/upload/process/download protocol. It obtains the
// bearer token from its Authenticator on every call and never retries.
type Client struct {
	auth        *Authenticator
	http        *http.Client
	baseURL     string
	scheme      string
	maxDownload int64
	logger      *slog.Logger
}

// New creates a Client and its Authenticator from cfg. cfg must be finalized.
func New(cfg *Config, logger *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.TimeoutDuration()}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		auth:        NewAuthenticator(cfg.PublicKey, baseURL, httpClient, logger),
		http:        httpClient,
		baseURL:     baseURL,
		scheme:      cfg.WorkerScheme,
		maxDownload: cfg.MaxDownloadBytes(),
		logger:      logger.With("system", "docservice"),
	}
}

// Authenticator returns the client's token source.
func (c *Client) Authenticator() *Authenticator {
	return c.auth
}

type startResponse struct {
	Task   string `json:"task"`
	Server string `json:"server"`
}

// Start opens a task for tool and returns it pinned to the assigned worker.
func (c *Client) Start(ctx context.Context, tool string) (*Task, error) {
	endpoint := c.baseURL + "/start/" + url.PathEscape(tool)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTaskStart, err)
	}

	resp, err := c.send(req, "start", ErrTaskStart)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out startResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrTaskStart, err)
	}
	if out.Task == "" || out.Server == "" {
		return nil, fmt.Errorf("%w: response missing task or server", ErrTaskStart)
	}

	c.logger.Info("task started", "tool", tool, "task", out.Task, "worker", out.Server)
	return NewTask(out.Task, out.Server, tool), nil
}

type uploadResponse struct {
	ServerFilename string `json:"server_filename"`
}

// Upload sends data as a multipart file tagged with the task id and returns
// the server-side filename. The payload size is not limited here.
func (c *Client) Upload(ctx context.Context, task *Task, data []byte, filename string) (string, error) {
	body, contentType, err := uploadBody(task.ID(), data, filename)
	if err != nil {
		return "", fmt.Errorf("%w: encode multipart: %w", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.workerURL(task, "/v1/upload"), body)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrUpload, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.send(req, "upload", ErrUpload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrUpload, err)
	}
	if out.ServerFilename == "" {
		return "", fmt.Errorf("%w: response missing server_filename", ErrUpload)
	}

	c.logger.Info(
		"file uploaded",
		"task", task.ID(),
		"worker", task.Worker(),
		"filename", filename,
		"size", formatting.FormatBytes(int64(len(data))),
	)
	return out.ServerFilename, nil
}

type processFile struct {
	ServerFilename string `json:"server_filename"`
	Filename       string `json:"filename"`
}

// Process asks the worker to run the task's tool on the uploaded file.
// params are merged into the request body; the task, tool and files keys
// always carry the task's own values. Any 2xx status is success.
func (c *Client) Process(
	ctx context.Context,
	task *Task,
	serverFilename, originalFilename string,
	params map[string]any,
) error {
	payload := make(map[string]any, len(params)+3)
	for k, v := range params {
		payload[k] = v
	}
	payload["task"] = task.ID()
	payload["tool"] = task.Tool()
	payload["files"] = []processFile{{ServerFilename: serverFilename, Filename: originalFilename}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", ErrProcess, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.workerURL(task, "/v1/process"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrProcess, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req, "process", ErrProcess)
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.logger.Info("file processed", "task", task.ID(), "tool", task.Tool(), "status", resp.StatusCode)
	return nil
}

// Download streams the finished artifact from the task's worker into one buffer.
func (c *Client) Download(ctx context.Context, task *Task) ([]byte, error) {
	endpoint := c.workerURL(task, "/v1/download/"+task.ID())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrDownload, err)
	}

	resp, err := c.send(req, "download", ErrDownload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	s := newSink(c.maxDownload)
	if err := s.fill(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	data := s.Bytes()
	c.logger.Info("file downloaded", "task", task.ID(), "size", formatting.FormatBytes(int64(len(data))))
	return data, nil
}

// send authorizes and executes req. Non-2xx responses are closed and returned
// as a StatusError wrapped in sentinel; 401 also invalidates the cached token.
func (c *Client) send(req *http.Request, op string, sentinel error) (*http.Response, error) {
	token, err := c.auth.Ensure(req.Context())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel, err)
	}

	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			c.auth.Invalidate()
		}
		return nil, fmt.Errorf("%w: %w", sentinel, statusError(op, resp))
	}

	return resp, nil
}

func (c *Client) workerURL(task *Task, path string) string {
	u := url.URL{Scheme: c.scheme, Host: task.Worker(), Path: path}
	return u.String()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func uploadBody(taskID string, data []byte, filename string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("task", taskID); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", "application/pdf")

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
