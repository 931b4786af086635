package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCollections trả danh sách collection phẳng.
func GetCollections(c *gin.Context) {
	var req struct {
		DSpaceURL string `json:"dspaceUrl"`
	}
	// Body rỗng cũng hợp lệ, dùng DSpace URL mặc định
	_ = c.ShouldBindJSON(&req)

	collections, err := DSpace.Collections(c.Request.Context(), sessionCookie(c), req.DSpaceURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(collections),
		"collections": collections,
	})
}

// GetCollectionsWithContext trả danh sách collection kèm ngữ cảnh community,
// dùng cho mọi chỗ cần phân biệt collection trùng tên giữa các khoa.
func GetCollectionsWithContext(c *gin.Context) {
	var req struct {
		DSpaceURL string `json:"dspaceUrl"`
	}
	_ = c.ShouldBindJSON(&req)

	collections, err := DSpace.CollectionsWithContext(c.Request.Context(), sessionCookie(c), req.DSpaceURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(collections),
		"collections": collections,
	})
}
