package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/dspace-ocr-admin/controllers"
	"github.com/vnkhanh/dspace-ocr-admin/middleware"
	"github.com/vnkhanh/dspace-ocr-admin/ws"
)

func SetupRouter(r *gin.Engine) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")

	dspace := api.Group("/dspace")
	{
		dspace.POST("/login", controllers.Login)
		dspace.POST("/status", controllers.Status)
		dspace.POST("/collections", controllers.GetCollections)
		dspace.POST("/collections-with-context", controllers.GetCollectionsWithContext)

		// Các thao tác ghi vào DSpace bắt buộc có session
		authed := dspace.Group("")
		authed.Use(middleware.RequireDSpaceSession())
		{
			authed.POST("/create-item", controllers.CreateItem)
			authed.POST("/get-item-by-handle", controllers.GetItemByHandle)
			authed.POST("/upload-bitstream", controllers.UploadBitstream)
			authed.POST("/push/:jobId", controllers.PushSingle)
			authed.POST("/push-batch", controllers.PushBatch)
		}
	}

	ocr := api.Group("/ocr")
	{
		ocr.POST("/upload", controllers.UploadOCR)
		ocr.GET("/jobs", controllers.GetJobs)
		ocr.GET("/jobs/:jobId/metadata", controllers.GetJobMetadata)
		ocr.PUT("/jobs/:jobId/metadata", controllers.PutJobMetadata)
		ocr.PUT("/jobs/:jobId/dspace", controllers.SaveJobDSpace)
		ocr.DELETE("/jobs/:jobId", controllers.DeleteJob)
		ocr.GET("/download/batch", controllers.DownloadBatch)
		ocr.GET("/download/:jobId", controllers.DownloadJob)
	}

	ai := api.Group("/ai")
	{
		ai.POST("/suggest-collection", controllers.SuggestCollection)
		ai.POST("/suggest-collection-batch", controllers.SuggestCollectionBatch)
	}

	r.GET("/ws/jobs", ws.HandleJobsWebSocket)

	return r
}
