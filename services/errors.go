package services

import "fmt"

const detailPreviewLimit = 500

// UpstreamError là lỗi từ OCR service / DSpace / Gemini: network fail hoặc non-2xx.
// Detail đã được cắt ngắn để hiển thị toast, không bao giờ giữ nguyên body dài.
type UpstreamError struct {
	Service string
	Status  int
	Detail  string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s lỗi %d: %s", e.Service, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s không phản hồi: %s", e.Service, e.Detail)
}

// AuthError — sai tài khoản hoặc thiếu session, không bao giờ auto-retry.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	return "đăng nhập thất bại: " + e.Detail
}

// ParseError — body không đúng shape JSON/XML mong đợi.
// Raw giữ prefix của body gốc để chẩn đoán, không silently discard.
type ParseError struct {
	What string
	Raw  string
}

func (e *ParseError) Error() string {
	return "không parse được " + e.What
}

// NotFoundError — job/file/item không tồn tại.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return "không tìm thấy " + e.What
}

// truncate cắt chuỗi về tối đa n ký tự cho preview lỗi.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
