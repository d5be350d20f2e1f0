package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"autoclipper/config"
)

// DownloadFile serves rendered clips, thumbnails and subtitle files from
// the output directory. The wildcard path is relative to that root.
func (h *Handler) DownloadFile(c *gin.Context) {
	requested := strings.TrimPrefix(c.Param("filepath"), "/")
	if requested == "" || strings.Contains(requested, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file path"})
		return
	}

	root := filepath.Join(config.Conf.App.DataDir, "output")
	full := filepath.Clean(filepath.Join(root, filepath.FromSlash(requested)))
	if !strings.HasPrefix(full, filepath.Clean(root)+string(filepath.Separator)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file path"})
		return
	}

	c.File(full)
}
