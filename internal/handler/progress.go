package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"autoclipper/internal/dto"
	"autoclipper/internal/types"
	"autoclipper/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const progressWriteTimeout = 10 * time.Second

// ProgressWS streams pipeline status transitions for one video over a
// websocket. The current status is sent immediately, then every transition
// until the run reaches a terminal state or the client disconnects.
func (h *Handler) ProgressWS(c *gin.Context) {
	videoId := c.Param("videoId")

	video, err := h.Service.GetVideo(videoId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.GetLogger().Error("websocket upgrade failed",
			zap.String("videoId", videoId), zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribe before sending the snapshot so transitions published in
	// between are not lost.
	updates, unsubscribe := h.Service.SubscribeProgress(videoId)
	defer unsubscribe()

	current := types.VideoStatus(video.Status)
	if err := writeProgress(conn, videoId, current); err != nil {
		return
	}
	if current.Terminal() {
		return
	}

	// Drain the reader so close frames and pings are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case status, ok := <-updates:
			if !ok {
				return
			}
			if err := writeProgress(conn, videoId, status); err != nil {
				return
			}
			if status.Terminal() {
				return
			}
		case <-done:
			return
		}
	}
}

func writeProgress(conn *websocket.Conn, videoId string, status types.VideoStatus) error {
	conn.SetWriteDeadline(time.Now().Add(progressWriteTimeout))
	return conn.WriteJSON(dto.ProgressEvent{
		VideoId: videoId,
		Status:  string(status),
	})
}
