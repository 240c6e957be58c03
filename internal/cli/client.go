package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FileResponse — файл из API.
type FileResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type,omitempty"`
	RemoteID  int64  `json:"remote_id"`
	Uploaded  bool   `json:"uploaded"`
	FolderID  *int64 `json:"folder_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// FolderResponse — папка из API.
type FolderResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ContentsResponse — содержимое папки.
type ContentsResponse struct {
	Folder      *FolderResponse  `json:"folder,omitempty"`
	Breadcrumbs []FolderResponse `json:"breadcrumbs"`
	Folders     []FolderResponse `json:"folders"`
	Files       []FileResponse   `json:"files"`
}

// UploadResponse — ответ на приём файла.
type UploadResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
	FileID int64  `json:"file_id"`
}

// ProgressResponse — прогресс загрузки.
type ProgressResponse struct {
	TaskID   string `json:"task_id"`
	Progress int    `json:"progress"`
}

// StatusResponse — диагностика сервиса.
type StatusResponse struct {
	Credentials struct {
		AccessKeyID     bool `json:"access_key_id"`
		SecretAccessKey bool `json:"secret_access_key"`
		SessionToken    bool `json:"session_token"`
	} `json:"credentials"`
	SessionFileExists bool  `json:"session_file_exists"`
	PendingUploads    int64 `json:"pending_uploads"`
	Storage           struct {
		Started        bool   `json:"started"`
		Ready          bool   `json:"ready"`
		State          string `json:"state"`
		Degraded       bool   `json:"degraded"`
		WorkerRunning  bool   `json:"worker_running"`
		QueueDepth     int    `json:"queue_depth"`
		PendingReplies int    `json:"pending_replies"`
		TrackedTasks   int    `json:"tracked_tasks"`
		StartError     string `json:"start_error,omitempty"`
	} `json:"storage"`
}

// --- Request types ---

// CreateFolderRequest — создание папки.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// BulkDeleteRequest — удаление нескольких файлов.
type BulkDeleteRequest struct {
	FileIDs []int64 `json:"file_ids"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrUploadFailed — сервер сообщил о неудачной загрузке (прогресс -1).
var ErrUploadFailed = errors.New("upload failed")

// --- Client ---

// Client — HTTP-клиент для Cloudbox API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// transferClient без таймаута: файлы могут идти долго.
	transferClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		transferClient: &http.Client{},
	}
}

// --- Files ---

// Upload отправляет файл. folderID == nil — корень.
func (c *Client) Upload(path string, folderID *int64, taskID string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, f, filepath.Base(path), folderID, taskID)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/files", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.transferClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result UploadResponse
	if err := c.decodeData(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func writeUploadForm(mw *multipart.Writer, r io.Reader, name string, folderID *int64, taskID string) error {
	if taskID != "" {
		if err := mw.WriteField("task_id", taskID); err != nil {
			return err
		}
	}
	if folderID != nil {
		if err := mw.WriteField("folder_id", strconv.FormatInt(*folderID, 10)); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// Progress возвращает прогресс загрузки.
func (c *Client) Progress(taskID string) (int, error) {
	var p ProgressResponse
	err := c.get("/api/v1/uploads/"+taskID+"/progress", &p)
	return p.Progress, err
}

// WaitUpload опрашивает прогресс до 100 или -1.
// onProgress вызывается при каждом изменении.
func (c *Client) WaitUpload(taskID string, interval time.Duration, onProgress func(int)) error {
	last := -2
	for {
		p, err := c.Progress(taskID)
		if err != nil {
			return err
		}
		if p != last && onProgress != nil {
			onProgress(p)
		}
		last = p

		switch {
		case p >= 100:
			return nil
		case p < 0:
			return ErrUploadFailed
		}
		time.Sleep(interval)
	}
}

// GetFile возвращает метаданные файла.
func (c *Client) GetFile(id int64) (*FileResponse, error) {
	var file FileResponse
	err := c.get(fmt.Sprintf("/api/v1/files/%d", id), &file)
	return &file, err
}

// Download скачивает файл в w. Возвращает имя файла из ответа.
func (c *Client) Download(id int64, w io.Writer) (string, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/files/%d/download", c.baseURL, id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.transferClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return "", err
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	name := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	return name, nil
}

// DeleteFile удаляет файл.
func (c *Client) DeleteFile(id int64) error {
	return c.delete(fmt.Sprintf("/api/v1/files/%d", id))
}

// BulkDelete удаляет несколько файлов и возвращает число удалённых.
func (c *Client) BulkDelete(ids []int64) (int64, error) {
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	err := c.post("/api/v1/files/bulk-delete", BulkDeleteRequest{FileIDs: ids}, &result)
	return result.Deleted, err
}

// --- Folders ---

// Contents возвращает содержимое папки. folderID == nil — корень.
func (c *Client) Contents(folderID *int64) (*ContentsResponse, error) {
	path := "/api/v1/folders/contents"
	if folderID != nil {
		path = fmt.Sprintf("/api/v1/folders/%d/contents", *folderID)
	}

	var contents ContentsResponse
	err := c.get(path, &contents)
	return &contents, err
}

// CreateFolder создаёт папку.
func (c *Client) CreateFolder(req CreateFolderRequest) (*FolderResponse, error) {
	var folder FolderResponse
	err := c.post("/api/v1/folders", req, &folder)
	return &folder, err
}

// --- Status ---

// Status возвращает диагностику сервиса.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	err := c.get("/api/v1/status", &status)
	return &status, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeData(resp, result)
}

func (c *Client) decodeData(resp *http.Response, result any) error {
	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
