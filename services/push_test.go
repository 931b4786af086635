package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// zipFixture dựng archive kết quả OCR trong memory.
func zipFixture(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeBackends dựng cặp server OCR + DSpace giả cho pipeline push.
type fakeBackends struct {
	mu        sync.Mutex
	tracking  map[string][]models.DSpaceTracking
	created   int
	uploads   []string
	zips      map[string][]byte
	ocrSrv    *httptest.Server
	dspaceSrv *httptest.Server
}

func newFakeBackends(t *testing.T, zips map[string][]byte) *fakeBackends {
	f := &fakeBackends{
		tracking: map[string][]models.DSpaceTracking{},
		zips:     zips,
	}

	ocrMux := http.NewServeMux()
	ocrMux.HandleFunc("/api/v2/jobs/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v2/jobs/"), "/")
		jobID := parts[0]

		if len(parts) == 2 && parts[1] == "dspace" && r.Method == http.MethodPut {
			var tr models.DSpaceTracking
			json.NewDecoder(r.Body).Decode(&tr)
			f.mu.Lock()
			f.tracking[jobID] = append(f.tracking[jobID], tr)
			f.mu.Unlock()
			w.Write([]byte(`{"ok": true}`))
			return
		}
		if len(parts) == 2 && parts[1] == "metadata" {
			json.NewEncoder(w).Encode(models.JobMetadata{Metadata: []models.MetadataField{
				{Key: "dc.title", Value: "Tài liệu " + jobID},
			}})
			return
		}
		http.NotFound(w, r)
	})
	ocrMux.HandleFunc("/api/v2/download/", func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/v2/download/")
		data, ok := f.zips[jobID]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	f.ocrSrv = httptest.NewServer(ocrMux)

	dspaceMux := http.NewServeMux()
	dspaceMux.HandleFunc("/rest/collections/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.created++
		n := f.created
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"id": 1000 + n, "handle": fmt.Sprintf("123456789/%d", n)})
	})
	dspaceMux.HandleFunc("/rest/items/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.uploads = append(f.uploads, r.URL.Path+"?"+r.URL.RawQuery)
		f.mu.Unlock()
		w.Write([]byte(`{"id": 55, "name": "thesis.pdf"}`))
	})
	f.dspaceSrv = httptest.NewServer(dspaceMux)

	t.Cleanup(func() {
		f.ocrSrv.Close()
		f.dspaceSrv.Close()
	})
	return f
}

func (f *fakeBackends) pushService() *PushService {
	return NewPushService(NewOCRClient(f.ocrSrv.URL), NewDSpaceClient(f.dspaceSrv.URL))
}

func (f *fakeBackends) lastTracking(jobID string) models.DSpaceTracking {
	f.mu.Lock()
	defer f.mu.Unlock()
	trs := f.tracking[jobID]
	if len(trs) == 0 {
		return models.DSpaceTracking{}
	}
	return trs[len(trs)-1]
}

func TestPushJobHappyPath(t *testing.T) {
	f := newFakeBackends(t, map[string][]byte{
		"j1": zipFixture(t, map[string]string{
			"thesis.pdf":    "%PDF-1.4 nội dung",
			"metadata.json": `{"dc.title": "x"}`,
		}),
	})

	result := f.pushService().PushJob(context.Background(), "JSESSIONID=x", "",
		models.Job{JobID: "j1", Filename: "thesis.pdf", DSpaceCollectionID: "10"})

	if result.Status != models.DSpaceUploaded {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	if result.ItemID == "" {
		t.Error("thiếu itemId trong kết quả")
	}
	if tr := f.lastTracking("j1"); tr.Status != models.DSpaceUploaded || tr.ItemID != result.ItemID {
		t.Errorf("tracking cuối = %+v", tr)
	}
	if len(f.uploads) != 1 || !strings.Contains(f.uploads[0], "name=thesis.pdf") {
		t.Errorf("uploads = %v", f.uploads)
	}
}

func TestPushJobSkipsMetadataSidecar(t *testing.T) {
	f := newFakeBackends(t, map[string][]byte{
		"j1": zipFixture(t, map[string]string{
			"metadata.pdf": "sidecar không được chọn",
			"output.pdf":   "%PDF-1.4 file chính",
		}),
	})

	result := f.pushService().PushJob(context.Background(), "JSESSIONID=x", "",
		models.Job{JobID: "j1", DSpaceCollectionID: "10"})

	if result.Status != models.DSpaceUploaded {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	if !strings.Contains(f.uploads[0], "name=output.pdf") {
		t.Errorf("phải upload output.pdf, nhận %v", f.uploads)
	}
}

func TestPushJobMissingPDF(t *testing.T) {
	f := newFakeBackends(t, map[string][]byte{
		"j1": zipFixture(t, map[string]string{"result.txt": "chỉ có text"}),
	})

	result := f.pushService().PushJob(context.Background(), "JSESSIONID=x", "",
		models.Job{JobID: "j1", DSpaceCollectionID: "10"})

	if result.Status != models.DSpaceUploadFailed {
		t.Fatalf("status = %s, muốn upload_failed", result.Status)
	}
	if result.Error == "" {
		t.Error("thiếu thông báo lỗi")
	}
	if tr := f.lastTracking("j1"); tr.Status != models.DSpaceUploadFailed {
		t.Errorf("tracking cuối = %+v", tr)
	}
	// Item đã tạo trước khi fail — itemId phải được giữ cho lần retry
	if tr := f.lastTracking("j1"); tr.ItemID == "" {
		t.Error("itemId phải được lưu dù upload bitstream fail")
	}
}

func TestPushJobNoCollection(t *testing.T) {
	f := newFakeBackends(t, nil)

	result := f.pushService().PushJob(context.Background(), "JSESSIONID=x", "",
		models.Job{JobID: "j1"})

	if result.Status != models.DSpaceUploadFailed {
		t.Fatalf("status = %s", result.Status)
	}
	if f.created != 0 {
		t.Error("không được tạo item khi chưa chọn collection")
	}
}

func TestPushJobRetryReusesItem(t *testing.T) {
	f := newFakeBackends(t, map[string][]byte{
		"j1": zipFixture(t, map[string]string{"thesis.pdf": "%PDF-1.4"}),
	})

	// Job đã có itemId từ lần push trước (bitstream fail giữa chừng)
	result := f.pushService().PushJob(context.Background(), "JSESSIONID=x", "",
		models.Job{
			JobID:              "j1",
			DSpaceCollectionID: "10",
			DSpaceItemID:       "1042",
			DSpaceHandle:       "123456789/42",
		})

	if result.Status != models.DSpaceUploaded {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	if f.created != 0 {
		t.Errorf("retry không được tạo item mới, đã tạo %d", f.created)
	}
	if result.ItemID != "1042" {
		t.Errorf("phải tái dùng itemId 1042, nhận %s", result.ItemID)
	}
	if !strings.Contains(f.uploads[0], "/rest/items/1042/bitstreams") {
		t.Errorf("upload phải vào item cũ, nhận %v", f.uploads)
	}
}

func TestPushBatchIsolatedOutcomes(t *testing.T) {
	f := newFakeBackends(t, map[string][]byte{
		"j1": zipFixture(t, map[string]string{"a.pdf": "%PDF-1.4"}),
		"j2": zipFixture(t, map[string]string{"chi_co_text.txt": "không có pdf"}),
		"j3": zipFixture(t, map[string]string{"c.pdf": "%PDF-1.4"}),
	})

	jobs := []models.Job{
		{JobID: "j1", DSpaceCollectionID: "10"},
		{JobID: "j2", DSpaceCollectionID: "10"},
		{JobID: "j3", DSpaceCollectionID: "10"},
	}

	batch := f.pushService().PushBatch(context.Background(), "JSESSIONID=x", "", jobs)

	if batch.Uploaded != 2 || batch.Failed != 1 {
		t.Fatalf("uploaded=%d failed=%d, muốn 2/1", batch.Uploaded, batch.Failed)
	}
	if len(batch.Results) != 3 {
		t.Fatalf("nhận %d results", len(batch.Results))
	}

	// Kết quả giữ đúng thứ tự job đầu vào
	byID := map[string]string{}
	for i, r := range batch.Results {
		if r.JobID != jobs[i].JobID {
			t.Errorf("results[%d].JobID = %s, muốn %s", i, r.JobID, jobs[i].JobID)
		}
		byID[r.JobID] = r.Status
	}
	if byID["j2"] != models.DSpaceUploadFailed {
		t.Errorf("j2 phải fail, nhận %s", byID["j2"])
	}
	if byID["j1"] != models.DSpaceUploaded || byID["j3"] != models.DSpaceUploaded {
		t.Errorf("j1/j3 phải thành công: %v", byID)
	}
}
