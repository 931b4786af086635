package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// PushService đẩy một job OCR đã hoàn thành lên DSpace:
// tạo item metadata → resolve itemId → tải archive OCR → tìm file PDF → upload bitstream.
// Trạng thái từng bước ghi ngược về OCR service để UI reload vẫn đúng.
type PushService struct {
	OCR    *OCRClient
	DSpace *DSpaceClient

	// số job đẩy song song trong một batch
	Concurrency int
}

func NewPushService(ocr *OCRClient, dspace *DSpaceClient) *PushService {
	return &PushService{OCR: ocr, DSpace: dspace, Concurrency: 3}
}

// PushJob chạy pipeline cho một job. Mọi lỗi đều được gói vào PushResult
// với status upload_failed, không panic/abort — caller batch gom kết quả.
func (s *PushService) PushJob(ctx context.Context, cookie, dspaceURL string, job models.Job) models.PushResult {
	result := models.PushResult{JobID: job.JobID, Filename: job.Filename}

	if job.DSpaceCollectionID == "" {
		result.Status = models.DSpaceUploadFailed
		result.Error = "chưa chọn collection"
		return result
	}

	// Đánh dấu uploading, best effort — lỗi tracking không chặn pipeline
	if err := s.OCR.SaveDSpaceTracking(ctx, job.JobID, models.DSpaceTracking{Status: models.DSpaceUploading}); err != nil {
		log.Printf("Không ghi được trạng thái uploading cho %s: %v", job.JobID, err)
	}

	item, err := s.resolveItem(ctx, cookie, dspaceURL, job)
	if err != nil {
		return s.fail(ctx, result, err)
	}
	result.ItemID = item.ItemID
	result.Handle = item.Handle

	// Lưu itemId NGAY khi có để lần retry sau không tạo item trùng
	if err := s.OCR.SaveDSpaceTracking(ctx, job.JobID, models.DSpaceTracking{
		Status: models.DSpaceUploading,
		ItemID: item.ItemID,
		Handle: item.Handle,
	}); err != nil {
		log.Printf("Không lưu được itemId cho %s: %v", job.JobID, err)
	}

	pdfName, pdfBytes, err := s.fetchPDF(ctx, job.JobID)
	if err != nil {
		return s.fail(ctx, result, err)
	}

	if _, err := s.DSpace.UploadBitstream(ctx, cookie, dspaceURL, item.ItemID, pdfName, bytes.NewReader(pdfBytes)); err != nil {
		return s.fail(ctx, result, err)
	}

	result.Status = models.DSpaceUploaded
	if err := s.OCR.SaveDSpaceTracking(ctx, job.JobID, models.DSpaceTracking{
		Status: models.DSpaceUploaded,
		ItemID: item.ItemID,
		Handle: item.Handle,
	}); err != nil {
		log.Printf("Không ghi được trạng thái uploaded cho %s: %v", job.JobID, err)
	}

	log.Printf("Đã đẩy %s lên DSpace, item %s", job.Filename, item.ItemID)
	return result
}

// resolveItem trả về item DSpace cho job: tái dùng itemId đã lưu từ lần push
// trước (item đã tồn tại bền vững trong repository một khi có id — retry chỉ
// upload lại bitstream, KHÔNG tạo lại record metadata); nếu chưa có thì tạo mới,
// thiếu id mà có handle thì tra cứu thêm một bước.
func (s *PushService) resolveItem(ctx context.Context, cookie, dspaceURL string, job models.Job) (models.Item, error) {
	if job.DSpaceItemID != "" {
		log.Printf("Job %s đã có item %s, bỏ qua bước tạo item", job.JobID, job.DSpaceItemID)
		return models.Item{ItemID: job.DSpaceItemID, ID: job.DSpaceItemID, Handle: job.DSpaceHandle}, nil
	}

	fields, err := s.OCR.Metadata(ctx, job.JobID)
	if err != nil {
		return models.Item{}, fmt.Errorf("lỗi lấy metadata: %w", err)
	}

	item, err := s.DSpace.CreateItem(ctx, cookie, dspaceURL, job.DSpaceCollectionID, fields)
	if err != nil {
		return models.Item{}, fmt.Errorf("lỗi tạo item: %w", err)
	}

	if item.ItemID == "" && item.Handle != "" {
		resolved, err := s.DSpace.ItemByHandle(ctx, cookie, dspaceURL, item.Handle)
		if err != nil {
			return models.Item{}, fmt.Errorf("lỗi tra item theo handle: %w", err)
		}
		item.ItemID = resolved.ItemID
	}
	if item.ItemID == "" {
		return models.Item{}, fmt.Errorf("không lấy được item ID từ DSpace")
	}
	return item, nil
}

// fetchPDF tải archive kết quả OCR và lấy ra file PDF chính
// (đuôi .pdf, không phải file metadata sidecar). Không có thì fail rõ ràng,
// không đoán mò file khác.
func (s *PushService) fetchPDF(ctx context.Context, jobID string) (string, []byte, error) {
	body, _, err := s.OCR.Download(ctx, jobID)
	if err != nil {
		return "", nil, fmt.Errorf("lỗi tải archive OCR: %w", err)
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", nil, fmt.Errorf("lỗi đọc archive: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return "", nil, fmt.Errorf("archive không phải ZIP hợp lệ: %w", err)
	}

	for _, f := range reader.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".pdf") || strings.Contains(f.Name, "metadata") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", nil, err
		}
		return f.Name, content, nil
	}

	return "", nil, &NotFoundError{What: "file PDF trong kết quả job"}
}

func (s *PushService) fail(ctx context.Context, result models.PushResult, err error) models.PushResult {
	result.Status = models.DSpaceUploadFailed
	result.Error = err.Error()
	log.Printf("Push %s thất bại: %v", result.JobID, err)

	if trackErr := s.OCR.SaveDSpaceTracking(ctx, result.JobID, models.DSpaceTracking{
		Status: models.DSpaceUploadFailed,
		ItemID: result.ItemID,
		Handle: result.Handle,
		Error:  truncate(err.Error(), detailPreviewLimit),
	}); trackErr != nil {
		log.Printf("Không ghi được trạng thái upload_failed cho %s: %v", result.JobID, trackErr)
	}
	return result
}

// BatchResult gom kết quả đẩy một batch.
type BatchResult struct {
	Uploaded int                 `json:"uploaded"`
	Failed   int                 `json:"failed"`
	Results  []models.PushResult `json:"results"`
}

// PushBatch đẩy nhiều job song song, outcome từng job độc lập —
// một job fail không hủy job khác đang chạy.
func (s *PushService) PushBatch(ctx context.Context, cookie, dspaceURL string, jobs []models.Job) BatchResult {
	results := make([]models.PushResult, len(jobs))

	g := &errgroup.Group{}
	limit := s.Concurrency
	if limit <= 0 {
		limit = 3
	}
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = s.PushJob(ctx, cookie, dspaceURL, job)
			return nil
		})
	}
	_ = g.Wait()

	batch := BatchResult{Results: results}
	for _, r := range results {
		if r.Status == models.DSpaceUploaded {
			batch.Uploaded++
		} else {
			batch.Failed++
		}
	}
	log.Printf("Batch push xong: %d thành công, %d thất bại", batch.Uploaded, batch.Failed)
	return batch
}
