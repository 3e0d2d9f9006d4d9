package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// Root serves <staticDir>/index.html when the dashboard is deployed and a
// liveness message otherwise.
func Root(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if staticDir != "" {
			index := filepath.Join(staticDir, "index.html")
			if fi, err := os.Stat(index); err == nil && !fi.IsDir() {
				c.File(index)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "API alive"})
	}
}
