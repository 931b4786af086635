package controllers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/vnkhanh/dspace-ocr-admin/models"
	"github.com/vnkhanh/dspace-ocr-admin/ws"
)

// UploadOCR relay file PDF sang OCR service để tạo job mới.
func UploadOCR(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có file đính kèm"})
		return
	}

	collection := c.PostForm("collection")
	language := c.PostForm("language")

	result, err := OCR.Upload(c.Request.Context(), file, collection, language)
	if err != nil {
		respondError(c, err)
		return
	}

	ws.BroadcastJobListChanged()
	c.JSON(http.StatusOK, result)
}

// GetJobs trả snapshot danh sách job, filter theo status, kèm metadata nếu cần.
func GetJobs(c *gin.Context) {
	includeMetadata := c.Query("include_metadata") == "true"

	jobs, err := OCR.Jobs(c.Request.Context(), c.Query("status"), includeMetadata)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJobMetadata trả metadata hiện tại của job.
func GetJobMetadata(c *gin.Context) {
	fields, err := OCR.Metadata(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.JobMetadata{Metadata: fields})
}

// PutJobMetadata ghi đè toàn bộ metadata của job (full replace).
func PutJobMetadata(c *gin.Context) {
	var req models.JobMetadata
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ: metadata phải là mảng"})
		return
	}
	if req.Metadata == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu metadata"})
		return
	}

	if err := OCR.PutMetadata(c.Request.Context(), c.Param("jobId"), req.Metadata); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SaveJobDSpace lưu tracking fields DSpace (collection đã chọn, trạng thái push)
// về OCR service để reload trang không mất trạng thái.
func SaveJobDSpace(c *gin.Context) {
	var req models.DSpaceTracking
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ"})
		return
	}

	if err := OCR.SaveDSpaceTracking(c.Request.Context(), c.Param("jobId"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteJob xóa job và artifact OCR. Xóa job không tồn tại trả 404 sạch,
// UI gọi lần hai không bị crash.
func DeleteJob(c *gin.Context) {
	result, err := OCR.Delete(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}

	ws.BroadcastJobListChanged()
	c.JSON(http.StatusOK, result)
}

// DownloadJob stream archive ZIP kết quả của job, không buffer toàn bộ.
func DownloadJob(c *gin.Context) {
	jobID := c.Param("jobId")

	body, length, err := OCR.Download(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, slug.Make(jobID)))
	if length > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", length))
	}

	if _, err := io.Copy(c.Writer, body); err != nil {
		// Client ngắt giữa chừng, chỉ log được thôi
		return
	}
}

// DownloadBatch gộp nhiều job thành một ZIP: batch_<ngày>.zip
func DownloadBatch(c *gin.Context) {
	ids := c.QueryArray("ids")
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chưa chọn job nào"})
		return
	}

	body, length, err := OCR.DownloadBatch(c.Request.Context(), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="batch_%s.zip"`, time.Now().Format("2006-01-02")))
	if length > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", length))
	}

	if _, err := io.Copy(c.Writer, body); err != nil {
		return
	}
}
