package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Login đăng nhập DSpace và set cookie JSESSIONID (đã cắt gọn) cho browser.
// Cookie jar của browser là nơi duy nhất giữ session — server không lưu gì.
func Login(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		DSpaceURL string `json:"dspaceUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body không hợp lệ"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu email hoặc password"})
		return
	}

	jsession, err := DSpace.Login(c.Request.Context(), req.Email, req.Password, req.DSpaceURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Set-Cookie", jsession+"; Path=/; HttpOnly; SameSite=Lax")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login success"})
}

// Status kiểm tra session còn hiệu lực không.
// Upstream trả HTML (session hết hạn) thì trả authenticated=false, không bao giờ 500.
func Status(c *gin.Context) {
	var req struct {
		DSpaceURL string `json:"dspaceUrl"`
	}
	// Body rỗng cũng hợp lệ, dùng DSpace URL mặc định
	_ = c.ShouldBindJSON(&req)

	status, err := DSpace.Status(c.Request.Context(), c.GetHeader("Cookie"), req.DSpaceURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// sessionCookie lấy cookie từ request, rỗng nếu chưa đăng nhập.
func sessionCookie(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Cookie"))
}
