package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// CreateItem tạo record chỉ-metadata trong collection đã chọn.
// Response DSpace (JSON hay XML tùy version) đã được normalize về một shape.
func CreateItem(c *gin.Context) {
	var req struct {
		CollectionID string                 `json:"collectionId"`
		Metadata     []models.MetadataField `json:"metadata"`
		DSpaceURL    string                 `json:"dspaceUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ: metadata phải là mảng"})
		return
	}
	if req.CollectionID == "" || req.Metadata == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu collectionId hoặc metadata"})
		return
	}

	item, err := DSpace.CreateItem(c.Request.Context(), sessionCookie(c), req.DSpaceURL, req.CollectionID, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"itemId":   item.ItemID,
		"id":       item.ID,
		"uuid":     item.UUID,
		"handle":   item.Handle,
		"name":     item.Name,
		"archived": item.Archived,
		"message":  "Item created successfully",
	})
}

// GetItemByHandle tra item theo persistent handle — cần khi create-item
// chỉ trả về handle chứ không có id trực tiếp.
func GetItemByHandle(c *gin.Context) {
	var req struct {
		Handle    string `json:"handle"`
		DSpaceURL string `json:"dspaceUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ"})
		return
	}
	if req.Handle == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu handle"})
		return
	}

	item, err := DSpace.ItemByHandle(c.Request.Context(), sessionCookie(c), req.DSpaceURL, req.Handle)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      item.ItemID,
		"handle":  item.Handle,
		"type":    item.Type,
	})
}

// UploadBitstream nhận raw binary body và stream thẳng lên DSpace.
func UploadBitstream(c *gin.Context) {
	itemID := c.Query("itemId")
	fileName := c.Query("fileName")
	dspaceURL := c.Query("dspaceUrl")

	if itemID == "" || fileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu itemId hoặc fileName"})
		return
	}
	if itemID == "undefined" || itemID == "null" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "itemId không hợp lệ"})
		return
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File rỗng"})
		return
	}

	bs, err := DSpace.UploadBitstream(c.Request.Context(), sessionCookie(c), dspaceURL, itemID, fileName, c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"id":        bs.ID,
		"name":      bs.Name,
		"sizeBytes": bs.SizeBytes,
	})
}
