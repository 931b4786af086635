package config

import (
	"log"
	"os"
)

// Config gom các tham số môi trường của server.
// DSpaceURL chỉ là default — client có thể gửi dspaceUrl riêng trong body từng request.
type Config struct {
	Port         string
	DSpaceURL    string
	OCRAPIURL    string
	GeminiAPIKey string
	AllowOrigin  string
}

// Load đọc config từ biến môi trường.
func Load() Config {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		DSpaceURL:    os.Getenv("DSPACE_URL"),
		OCRAPIURL:    os.Getenv("OCR_API_URL"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		AllowOrigin:  getEnv("ALLOW_ORIGIN", "http://localhost:3000"),
	}

	if cfg.OCRAPIURL == "" {
		log.Println("Cảnh báo: OCR_API_URL chưa được cấu hình")
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("Cảnh báo: GEMINI_API_KEY chưa có — AI suggest sẽ dùng heuristic matcher")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
