// Package meshclient provides the HTTP adapter that implements
// mesh.Client against a meshy.ai-shaped two-phase 3D generation API.
package meshclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeready-toolchain/eroom/pkg/mesh"
)

const defaultBaseURL = "https://api.meshy.ai/openapi/v2"

// Client is an HTTP client for the mesh provider's preview/refine/status
// endpoints. One Client is shared across all driver invocations; it carries
// no per-task state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New creates a mesh HTTP client with a bounded per-request timeout.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		logger:     slog.Default(),
	}
}

// NewWithBaseURL creates a mesh HTTP client pointed at a non-default base
// URL, for tests that stand in an httptest.Server for the real provider.
func NewWithBaseURL(baseURL string) *Client {
	c := New()
	c.baseURL = baseURL
	return c
}

var _ mesh.Client = (*Client)(nil)

type createPreviewRequest struct {
	Mode            string `json:"mode"`
	Prompt          string `json:"prompt"`
	ArtStyle        string `json:"art_style"`
	AIModel         string `json:"ai_model"`
	Topology        string `json:"topology"`
	TargetPolycount int    `json:"target_polycount"`
	ShouldRemesh    bool   `json:"should_remesh"`
}

type createRefineRequest struct {
	Mode            string `json:"mode"`
	PreviewTaskID   string `json:"preview_task_id"`
	EnablePBR       bool   `json:"enable_pbr"`
	TargetPolycount int    `json:"target_polycount"`
}

type createTaskResponse struct {
	Result string `json:"result"`
}

type statusResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	TaskError struct {
		Message string `json:"message"`
	} `json:"task_error"`
	ModelUrls struct {
		FBX  string `json:"fbx"`
		GLB  string `json:"glb"`
		OBJ  string `json:"obj"`
		MTL  string `json:"mtl"`
		USDZ string `json:"usdz"`
	} `json:"model_urls"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// CreatePreview submits a preview task with the fixed parameters the
// protocol mandates and returns the provider's task id.
func (c *Client) CreatePreview(ctx context.Context, prompt, apiKey string) (string, error) {
	body := createPreviewRequest{
		Mode:            "preview",
		Prompt:          prompt,
		ArtStyle:        "realistic",
		AIModel:         "meshy-4",
		Topology:        "triangle",
		TargetPolycount: 4096,
		ShouldRemesh:    false,
	}
	return c.createTask(ctx, "/text-to-3d", body, apiKey)
}

// CreateRefine submits a refine task referencing a completed preview.
func (c *Client) CreateRefine(ctx context.Context, previewID, apiKey string) (string, error) {
	body := createRefineRequest{
		Mode:            "refine",
		PreviewTaskID:   previewID,
		EnablePBR:       false,
		TargetPolycount: 4096,
	}
	return c.createTask(ctx, "/text-to-3d", body, apiKey)
}

func (c *Client) createTask(ctx context.Context, path string, body any, apiKey string) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuthHeader(req, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &mesh.TransientError{Err: fmt.Errorf("call %s: %w", path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classifyHTTPError(resp.StatusCode, path)
	}

	var out createTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &mesh.TransientError{Err: fmt.Errorf("decode response from %s: %w", path, err)}
	}
	return out.Result, nil
}

// GetStatus fetches the current status of a preview or refine task.
func (c *Client) GetStatus(ctx context.Context, taskID, apiKey string) (mesh.TaskStatus, error) {
	url := fmt.Sprintf("%s/text-to-3d/%s", c.baseURL, taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mesh.TaskStatus{}, fmt.Errorf("create request: %w", err)
	}
	setAuthHeader(req, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mesh.TaskStatus{}, &mesh.TransientError{Err: fmt.Errorf("get status for %s: %w", taskID, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mesh.TaskStatus{}, classifyHTTPError(resp.StatusCode, "status")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return mesh.TaskStatus{}, &mesh.TransientError{Err: fmt.Errorf("read status body: %w", err)}
	}

	var out statusResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return mesh.TaskStatus{}, &mesh.TransientError{Err: fmt.Errorf("unparseable status body: %w", err)}
	}

	return mesh.TaskStatus{
		TaskID:   out.ID,
		Status:   mesh.TaskState(out.Status),
		Progress: out.Progress,
		Error:    out.TaskError.Message,
		ModelURLs: mesh.ModelURLs{
			FBX:  out.ModelUrls.FBX,
			GLB:  out.ModelUrls.GLB,
			OBJ:  out.ModelUrls.OBJ,
			MTL:  out.ModelUrls.MTL,
			USDZ: out.ModelUrls.USDZ,
		},
		ThumbnailURL: out.ThumbnailURL,
	}, nil
}

func setAuthHeader(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// classifyHTTPError maps a non-2xx status into a transient or fatal error
// per the driver's retry contract: 401/403/429 and any 5xx are transient,
// every other 4xx is fatal.
func classifyHTTPError(statusCode int, path string) error {
	err := fmt.Errorf("mesh provider returned HTTP %d for %s", statusCode, path)
	if mesh.IsTransient(statusCode) {
		return &mesh.TransientError{StatusCode: statusCode, Err: err}
	}
	return err
}
