package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

func TestJobsQueryPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/jobs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("status") != "completed" || q.Get("include_metadata") != "true" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"jobs": [
			{"job_id": "j1", "filename": "a.pdf", "status": "completed", "progress": 100},
			{"job_id": "j2", "filename": "b.pdf", "status": "completed", "progress": 100, "dspace_status": "uploaded", "dspace_item_id": "777"}
		]}`))
	}))
	defer srv.Close()

	jobs, err := NewOCRClient(srv.URL).Jobs(context.Background(), "completed", true)
	if err != nil {
		t.Fatalf("lỗi: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("nhận %d jobs, muốn 2", len(jobs))
	}
	if jobs[1].DSpaceItemID != "777" || jobs[1].DSpaceStatus != models.DSpaceUploaded {
		t.Errorf("tracking fields không được giữ: %+v", jobs[1])
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	lang := "vi"
	stored := []models.MetadataField{
		{Key: "dc.title", Value: "Ban đầu", Language: &lang},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/jobs/j1/metadata", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(models.JobMetadata{Metadata: stored})
		case http.MethodPut:
			var payload models.JobMetadata
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatal(err)
			}
			// Full replace, không merge
			stored = payload.Metadata
			w.Write([]byte(`{"ok": true}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewOCRClient(srv.URL)
	ctx := context.Background()

	got, err := client.Metadata(ctx, "j1")
	if err != nil {
		t.Fatalf("lỗi: %v", err)
	}
	if len(got) != 1 || got[0].Value != "Ban đầu" {
		t.Fatalf("metadata = %+v", got)
	}
	if got[0].Language == nil || *got[0].Language != "vi" {
		t.Errorf("language phải được giữ nguyên, nhận %v", got[0].Language)
	}

	// Ghi đè với ít field hơn — field cũ phải biến mất
	if err := client.PutMetadata(ctx, "j1", []models.MetadataField{
		{Key: "dc.title", Value: "Đã sửa"},
		{Key: "dc.subject", Value: "thư viện"},
	}); err != nil {
		t.Fatalf("PutMetadata lỗi: %v", err)
	}

	got, err = client.Metadata(ctx, "j1")
	if err != nil {
		t.Fatalf("lỗi: %v", err)
	}
	if len(got) != 2 || got[0].Value != "Đã sửa" {
		t.Errorf("sau full replace metadata = %+v", got)
	}
}

func TestMetadataNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOCRClient(srv.URL).Metadata(context.Background(), "khong-ton-tai")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("muốn NotFoundError, nhận %v", err)
	}
}

func TestDeleteRelays404(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if deleted {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		deleted = true
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewOCRClient(srv.URL)
	ctx := context.Background()

	if _, err := client.Delete(ctx, "j1"); err != nil {
		t.Fatalf("xóa lần đầu lỗi: %v", err)
	}

	// Xóa lần hai: 404 sạch, không phải lỗi generic
	_, err := client.Delete(ctx, "j1")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("xóa lần hai muốn NotFoundError, nhận %v", err)
	}
}

func TestDownloadStreams(t *testing.T) {
	payload := bytes.Repeat([]byte("zip-bytes-"), 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/download/j1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	body, length, err := NewOCRClient(srv.URL).Download(context.Background(), "j1")
	if err != nil {
		t.Fatalf("lỗi: %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("body bị biến dạng, nhận %d bytes", len(got))
	}
	if length != int64(len(payload)) {
		t.Errorf("ContentLength = %d, muốn %d", length, len(payload))
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := NewOCRClient(srv.URL).Download(context.Background(), "khong-co")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("muốn NotFoundError, nhận %v", err)
	}
}

func TestSaveDSpaceTracking(t *testing.T) {
	var got models.DSpaceTracking
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v2/jobs/j1/dspace" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	err := NewOCRClient(srv.URL).SaveDSpaceTracking(context.Background(), "j1", models.DSpaceTracking{
		Status: models.DSpaceUploaded,
		ItemID: "777",
		Handle: "123456789/77",
	})
	if err != nil {
		t.Fatalf("lỗi: %v", err)
	}
	if got.Status != models.DSpaceUploaded || got.ItemID != "777" {
		t.Errorf("payload = %+v", got)
	}
}

// fileHeader dựng multipart.FileHeader thật từ nội dung, để test Upload
// đúng đường đi của gin c.FormFile.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fw, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["file"][0]
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	client := NewOCRClient("http://example.invalid")
	ctx := context.Background()

	tests := []struct {
		name    string
		file    string
		content []byte
	}{
		{"không phải đuôi pdf", "scan.docx", []byte("nội dung")},
		{"đuôi pdf nhưng nội dung rác", "scan.pdf", []byte("đây không phải PDF")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := fileHeader(t, tt.file, tt.content)
			if _, err := client.Upload(ctx, fh, "", ""); err == nil {
				t.Error("file không hợp lệ phải bị chặn trước khi relay")
			}
		})
	}
}
