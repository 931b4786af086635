package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/dspace-ocr-admin/models"
	"github.com/vnkhanh/dspace-ocr-admin/ws"
)

// findJob tra job theo id từ snapshot OCR (kèm metadata để push dùng luôn).
func findJob(c *gin.Context, jobID string) (models.Job, bool) {
	jobs, err := OCR.Jobs(c.Request.Context(), "", true)
	if err != nil {
		respondError(c, err)
		return models.Job{}, false
	}
	for _, j := range jobs {
		if j.JobID == jobID {
			return j, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy job " + jobID})
	return models.Job{}, false
}

// PushSingle đẩy một job đã review lên DSpace. Session DSpace lấy từ cookie
// của request, không giữ ở server.
func PushSingle(c *gin.Context) {
	var req struct {
		DSpaceURL string `json:"dspaceUrl"`
	}
	// Body rỗng cũng hợp lệ, dùng DSpace URL mặc định
	_ = c.ShouldBindJSON(&req)

	job, ok := findJob(c, c.Param("jobId"))
	if !ok {
		return
	}

	result := Push.PushJob(c.Request.Context(), sessionCookie(c), req.DSpaceURL, job)
	ws.BroadcastJobListChanged()

	if result.Status != models.DSpaceUploaded {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// PushBatch đẩy nhiều job song song, kết quả từng job độc lập.
func PushBatch(c *gin.Context) {
	var req struct {
		JobIDs    []string `json:"jobIds"`
		DSpaceURL string   `json:"dspaceUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ"})
		return
	}
	if len(req.JobIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu jobIds"})
		return
	}

	jobs, err := OCR.Jobs(c.Request.Context(), "", true)
	if err != nil {
		respondError(c, err)
		return
	}
	byID := make(map[string]models.Job, len(jobs))
	for _, j := range jobs {
		byID[j.JobID] = j
	}

	selected := make([]models.Job, 0, len(req.JobIDs))
	missing := make([]models.PushResult, 0)
	for _, id := range req.JobIDs {
		if j, ok := byID[id]; ok {
			selected = append(selected, j)
			continue
		}
		missing = append(missing, models.PushResult{
			JobID:  id,
			Status: models.DSpaceUploadFailed,
			Error:  "không tìm thấy job",
		})
	}

	batch := Push.PushBatch(c.Request.Context(), sessionCookie(c), req.DSpaceURL, selected)
	batch.Results = append(batch.Results, missing...)
	batch.Failed += len(missing)

	ws.BroadcastJobListChanged()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"uploaded": batch.Uploaded,
		"failed":   batch.Failed,
		"results":  batch.Results,
	})
}
