package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/dspace-ocr-admin/services"
)

// respondError map lỗi service sang HTTP response.
// Mọi lỗi dừng ở boundary của action, thành một message đọc được — không crash trang.
func respondError(c *gin.Context, err error) {
	var authErr *services.AuthError
	if errors.As(err, &authErr) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error()})
		return
	}

	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
		return
	}

	var parseErr *services.ParseError
	if errors.As(err, &parseErr) {
		// Giữ prefix body gốc để operator chẩn đoán
		c.JSON(http.StatusInternalServerError, gin.H{"error": parseErr.Error(), "raw": parseErr.Raw})
		return
	}

	var upstream *services.UpstreamError
	if errors.As(err, &upstream) {
		status := upstream.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": upstream.Error(), "detail": upstream.Detail})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
