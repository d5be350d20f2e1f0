package router

import (
	"github.com/gin-gonic/gin"

	"autoclipper/internal/handler"
)

func SetupRouter(r *gin.Engine, hdl *handler.Handler) {
	api := r.Group("/api")
	{
		api.POST("/videos", hdl.SubmitVideo)
		api.GET("/videos", hdl.ListVideos)
		api.GET("/videos/:videoId", hdl.GetVideo)
		api.GET("/videos/:videoId/clips", hdl.ListClips)
		api.POST("/videos/:videoId/retry", hdl.RetryVideo)
		api.GET("/videos/:videoId/progress", hdl.ProgressWS)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
		api.GET("/config", hdl.GetConfig)
		api.POST("/config", hdl.UpdateConfig)
	}
}
