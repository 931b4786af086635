package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/dspace-ocr-admin/config"
	"github.com/vnkhanh/dspace-ocr-admin/controllers"
	"github.com/vnkhanh/dspace-ocr-admin/routes"
	"github.com/vnkhanh/dspace-ocr-admin/services"
	"github.com/vnkhanh/dspace-ocr-admin/ws"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	cfg := config.Load()
	controllers.Init(cfg)

	r := gin.Default()

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Cookie"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))
	// Gọi SetupRouter để đăng ký route
	r = routes.SetupRouter(r)

	// Route test server
	r.GET("/", func(c *gin.Context) {
		c.String(200, "DSpace OCR admin server is running")
	})

	// Poll OCR service và đẩy delta qua websocket, dừng khi nhận SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := services.NewJobWatcher(controllers.OCR, ws.BroadcastJobUpdate, ws.BroadcastJobListChanged)
	go watcher.Run(ctx)

	log.Println("Server running at Port:" + cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
