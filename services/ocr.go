package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// OCRClient gọi OCR microservice (FastAPI).
// Job, metadata và các tracking field DSpace đều do OCR service giữ làm source of truth.
type OCRClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOCRClient(baseURL string) *OCRClient {
	return &OCRClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Download archive có thể rất lâu nên không đặt timeout cứng,
		// cancel bằng context của request
		httpClient: &http.Client{},
	}
}

// Upload kiểm tra file PDF hợp lệ rồi relay multipart sang OCR service.
func (c *OCRClient) Upload(ctx context.Context, fileHeader *multipart.FileHeader, collection, language string) (map[string]any, error) {
	if collection == "" {
		collection = "default"
	}
	if language == "" {
		language = "vie"
	}

	if fileHeader.Size > 100*1024*1024 {
		return nil, fmt.Errorf("file vượt quá 100MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".pdf" {
		return nil, fmt.Errorf("chỉ hỗ trợ file PDF, nhận được %q", ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return nil, fmt.Errorf("lỗi đọc file: %w", err)
	}

	// File scan hỏng/không phải PDF thật thì chặn trước khi đẩy sang OCR
	if _, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return nil, fmt.Errorf("file không phải PDF hợp lệ: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fw, err := writer.CreateFormFile("file", fileHeader.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := writer.WriteField("collection", collection); err != nil {
		return nil, err
	}
	if err := writer.WriteField("language", language); err != nil {
		return nil, err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/process", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(respBody), detailPreviewLimit)}
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ParseError{What: "response upload OCR", Raw: truncate(string(respBody), detailPreviewLimit)}
	}
	return result, nil
}

// Jobs lấy snapshot danh sách job, filter theo status và kèm metadata nếu cần.
func (c *OCRClient) Jobs(ctx context.Context, status string, includeMetadata bool) ([]models.Job, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if includeMetadata {
		params.Set("include_metadata", "true")
	}

	endpoint := c.baseURL + "/api/v2/jobs"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}

	var result struct {
		Jobs []models.Job `json:"jobs"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ParseError{What: "danh sách job", Raw: truncate(string(body), detailPreviewLimit)}
	}
	return result.Jobs, nil
}

// Metadata lấy metadata hiện tại của một job.
func (c *OCRClient) Metadata(ctx context.Context, jobID string) ([]models.MetadataField, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(jobID)+"/metadata", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{What: "job " + jobID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}

	var result models.JobMetadata
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ParseError{What: "metadata job", Raw: truncate(string(body), detailPreviewLimit)}
	}
	return result.Metadata, nil
}

// PutMetadata ghi đè toàn bộ metadata (full replace, không patch).
// Hai tab cùng sửa thì last-write-wins, không detect conflict.
func (c *OCRClient) PutMetadata(ctx context.Context, jobID string, fields []models.MetadataField) error {
	payload, err := json.Marshal(models.JobMetadata{Metadata: fields})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.jobURL(jobID)+"/metadata", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{What: "job " + jobID}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}
	return nil
}

// Delete xóa job kèm artifact OCR. Xóa lần hai trả NotFoundError sạch sẽ, không crash.
func (c *OCRClient) Delete(ctx context.Context, jobID string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.jobURL(jobID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{What: "job " + jobID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		result = map[string]any{"ok": true}
	}
	return result, nil
}

// Download mở stream archive ZIP kết quả của job.
// Caller phải Close body. Không buffer toàn bộ vì size không giới hạn.
func (c *OCRClient) Download(ctx context.Context, jobID string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/download/"+jobID, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, 0, &NotFoundError{What: "job " + jobID}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, 0, &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}

	return resp.Body, resp.ContentLength, nil
}

// DownloadBatch gộp nhiều job thành một ZIP duy nhất (server OCR concat).
func (c *OCRClient) DownloadBatch(ctx context.Context, jobIDs []string) (io.ReadCloser, int64, error) {
	if len(jobIDs) == 0 {
		return nil, 0, fmt.Errorf("chưa chọn job nào")
	}

	params := url.Values{}
	for _, id := range jobIDs {
		params.Add("ids", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/download/batch?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, 0, &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}

	return resp.Body, resp.ContentLength, nil
}

// SaveDSpaceTracking ghi ngược trạng thái DSpace của job về OCR service
// để UI reload trang vẫn thấy đúng trạng thái push.
func (c *OCRClient) SaveDSpaceTracking(ctx context.Context, jobID string, tracking models.DSpaceTracking) error {
	payload, err := json.Marshal(tracking)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.jobURL(jobID)+"/dspace", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Service: "OCR", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{What: "job " + jobID}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Service: "OCR", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}
	return nil
}

func (c *OCRClient) jobURL(jobID string) string {
	return c.baseURL + "/api/v2/jobs/" + jobID
}
