package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/dspace-ocr-admin/ws"
)

func HealthCheck(c *gin.Context) {
	// Mặc định trạng thái OK
	response := gin.H{
		"status":    "ok",
		"message":   "Service is healthy",
		"timestamp": time.Now().Unix(),
		"ocr":       "ok",
		"websocket": gin.H{
			"enabled": true,
			"stats":   ws.H.GetStats(),
		},
	}

	// Thử ping OCR service
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, Cfg.OCRAPIURL+"/health", nil)
	if err != nil {
		response["ocr"] = "error: invalid OCR URL"
		response["status"] = "degraded"
		c.JSON(http.StatusInternalServerError, response)
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		response["ocr"] = "error: cannot connect to OCR service"
		response["status"] = "degraded"
		c.JSON(http.StatusInternalServerError, response)
		return
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		response["ocr"] = "error: OCR service unhealthy"
		response["status"] = "degraded"
		c.JSON(http.StatusInternalServerError, response)
		return
	}

	// Trả về nếu mọi thứ ổn
	c.JSON(http.StatusOK, response)
}
