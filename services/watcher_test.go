package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// jobFeed cho phép test đổi snapshot job giữa các lần poll.
type jobFeed struct {
	mu   sync.Mutex
	jobs []models.Job
}

func (f *jobFeed) set(jobs []models.Job) {
	f.mu.Lock()
	f.jobs = jobs
	f.mu.Unlock()
}

func (f *jobFeed) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"jobs": f.jobs})
	}
}

func newTestWatcher(srvURL string, broadcast func(models.JobUpdate), listChanged func()) *JobWatcher {
	w := NewJobWatcher(NewOCRClient(srvURL), broadcast, listChanged)
	w.Interval = 10 * time.Millisecond
	w.Backoff = 10 * time.Millisecond
	return w
}

func TestWatcherFirstPollBuildsSnapshotSilently(t *testing.T) {
	feed := &jobFeed{}
	feed.set([]models.Job{{JobID: "j1", Status: models.JobProcessing, Progress: 10}})

	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	var updates []models.JobUpdate
	w := newTestWatcher(srv.URL, func(u models.JobUpdate) { updates = append(updates, u) }, nil)

	if err := w.poll(context.Background()); err != nil {
		t.Fatalf("poll lỗi: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("lần poll đầu không được phát delta, nhận %v", updates)
	}
}

func TestWatcherEmitsDeltas(t *testing.T) {
	feed := &jobFeed{}
	feed.set([]models.Job{
		{JobID: "j1", Status: models.JobProcessing, Progress: 10},
		{JobID: "j2", Status: models.JobQueued},
	})

	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	var updates []models.JobUpdate
	listChanges := 0
	w := newTestWatcher(srv.URL,
		func(u models.JobUpdate) { updates = append(updates, u) },
		func() { listChanges++ })

	ctx := context.Background()
	if err := w.poll(ctx); err != nil {
		t.Fatal(err)
	}

	// j1 tiến độ tăng, j2 không đổi, j3 mới xuất hiện
	feed.set([]models.Job{
		{JobID: "j1", Status: models.JobProcessing, Progress: 60},
		{JobID: "j2", Status: models.JobQueued},
		{JobID: "j3", Status: models.JobQueued},
	})
	if err := w.poll(ctx); err != nil {
		t.Fatal(err)
	}

	if len(updates) != 2 {
		t.Fatalf("nhận %d deltas, muốn 2 (j1 đổi progress, j3 mới): %v", len(updates), updates)
	}
	if listChanges != 1 {
		t.Errorf("listChanged = %d, muốn 1", listChanges)
	}

	// j2 bị xóa → chỉ list_changed, không delta
	before := len(updates)
	feed.set([]models.Job{
		{JobID: "j1", Status: models.JobProcessing, Progress: 60},
		{JobID: "j3", Status: models.JobQueued},
	})
	if err := w.poll(ctx); err != nil {
		t.Fatal(err)
	}
	if len(updates) != before {
		t.Errorf("xóa job không được phát delta trạng thái: %v", updates[before:])
	}
	if listChanges != 2 {
		t.Errorf("listChanged = %d, muốn 2 sau khi xóa job", listChanges)
	}
}

func TestWatcherEmitsFailureDelta(t *testing.T) {
	feed := &jobFeed{}
	feed.set([]models.Job{{JobID: "j1", Status: models.JobProcessing, Progress: 50}})

	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	var updates []models.JobUpdate
	w := newTestWatcher(srv.URL, func(u models.JobUpdate) { updates = append(updates, u) }, nil)

	ctx := context.Background()
	if err := w.poll(ctx); err != nil {
		t.Fatal(err)
	}

	feed.set([]models.Job{{JobID: "j1", Status: models.JobFailed, Progress: 50, Error: "OCR engine crash"}})
	if err := w.poll(ctx); err != nil {
		t.Fatal(err)
	}

	if len(updates) != 1 {
		t.Fatalf("nhận %d deltas: %v", len(updates), updates)
	}
	if updates[0].Status != models.JobFailed || updates[0].Error != "OCR engine crash" {
		t.Errorf("delta = %+v", updates[0])
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	feed := &jobFeed{}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	w := newTestWatcher(srv.URL, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher không dừng sau khi cancel context")
	}
}

func TestWatcherRetriesAfterError(t *testing.T) {
	// Server lỗi 2 lần đầu rồi mới trả danh sách — watcher phải sống qua lỗi.
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"jobs": []}`))
	}))
	defer srv.Close()

	w := newTestWatcher(srv.URL, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("watcher không poll lại sau lỗi")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
