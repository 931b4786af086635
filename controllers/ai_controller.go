package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/dspace-ocr-admin/models"
	"github.com/vnkhanh/dspace-ocr-admin/services"
)

// pickSuggester chọn engine gợi ý: mặc định Gemini, query ?engine=heuristic
// để ép dùng matcher cục bộ. Không cấu hình API key thì tự fallback heuristic.
func pickSuggester(c *gin.Context) services.Suggester {
	engine := c.Query("engine")
	if engine == "heuristic" || Cfg.GeminiAPIKey == "" {
		return services.HeuristicSuggester{}
	}
	return services.NewGeminiSuggester(Cfg.GeminiAPIKey)
}

// SuggestCollection gợi ý collection cho MỘT tài liệu đang review.
func SuggestCollection(c *gin.Context) {
	var req struct {
		JobID       string                 `json:"jobId"`
		FolderName  string                 `json:"folderName"`
		Metadata    []models.MetadataField `json:"metadata"`
		Collections []models.Collection    `json:"collections"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ"})
		return
	}
	if len(req.Metadata) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu metadata"})
		return
	}
	if len(req.Collections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu danh sách collections"})
		return
	}

	doc := models.Document{
		JobID:      req.JobID,
		FolderName: req.FolderName,
		Title:      models.FindValue(req.Metadata, "dc.title"),
		Metadata:   req.Metadata,
	}

	suggestions, err := pickSuggester(c).Suggest(c.Request.Context(), []models.Document{doc}, req.Collections)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(suggestions) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "suggestion": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "suggestion": suggestions[0]})
}

// SuggestCollectionBatch gợi ý collection cho cả batch trong một lần gọi.
func SuggestCollectionBatch(c *gin.Context) {
	var req struct {
		Documents   []models.Document   `json:"documents"`
		Collections []models.Collection `json:"collections"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ"})
		return
	}
	if len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu documents"})
		return
	}
	if len(req.Collections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu danh sách collections"})
		return
	}

	suggestions, err := pickSuggester(c).Suggest(c.Request.Context(), req.Documents, req.Collections)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(suggestions),
		"suggestions": suggestions,
	})
}
