package services

import (
	"context"
	"log"
	"time"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// JobWatcher poll danh sách job từ OCR service và phát delta trạng thái
// {job_id, status, progress, error} qua WebSocket hub.
// Đây là kết nối vận hành sống lâu: poll lỗi thì backoff cố định rồi thử lại
// vô hạn, chỉ dừng khi context bị cancel (gắn với vòng đời process).
type JobWatcher struct {
	OCR *OCRClient

	Interval time.Duration // chu kỳ poll khi có job đang chạy
	Backoff  time.Duration // chờ sau khi poll lỗi

	Broadcast   func(models.JobUpdate)
	ListChanged func()

	prev map[string]models.Job
}

func NewJobWatcher(ocr *OCRClient, broadcast func(models.JobUpdate), listChanged func()) *JobWatcher {
	return &JobWatcher{
		OCR:         ocr,
		Interval:    5 * time.Second,
		Backoff:     3 * time.Second,
		Broadcast:   broadcast,
		ListChanged: listChanged,
	}
}

// Run chạy vòng poll cho tới khi ctx cancel.
func (w *JobWatcher) Run(ctx context.Context) {
	log.Println("Job watcher bắt đầu")
	defer log.Println("Job watcher dừng")

	for {
		wait := w.Interval
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Poll job lỗi, thử lại sau %s: %v", w.Backoff, err)
			wait = w.Backoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// poll lấy snapshot mới, so với snapshot trước và phát các delta.
func (w *JobWatcher) poll(ctx context.Context) error {
	jobs, err := w.OCR.Jobs(ctx, "", false)
	if err != nil {
		return err
	}

	current := make(map[string]models.Job, len(jobs))
	listChanged := false

	for _, job := range jobs {
		current[job.JobID] = job

		old, seen := w.prev[job.JobID]
		if !seen {
			listChanged = true
		}
		if w.prev == nil {
			continue // lần poll đầu chỉ dựng snapshot, không phát delta
		}
		if !seen || old.Status != job.Status || old.Progress != job.Progress || old.Error != job.Error {
			if w.Broadcast != nil {
				w.Broadcast(models.JobUpdate{
					JobID:    job.JobID,
					Status:   job.Status,
					Progress: job.Progress,
					Error:    job.Error,
				})
			}
		}
	}

	// Job biến mất = đã bị xóa
	for id := range w.prev {
		if _, ok := current[id]; !ok {
			listChanged = true
		}
	}

	if listChanged && w.prev != nil && w.ListChanged != nil {
		w.ListChanged()
	}

	w.prev = current
	return nil
}
