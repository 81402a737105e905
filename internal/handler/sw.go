package handler

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/sw.js
var swFS embed.FS

// ServeWorkerScript serves the background worker script. It must be served
// from the root path so the worker can control the entire origin.
func ServeWorkerScript(c *gin.Context) {
	script, err := swFS.ReadFile("static/sw.js")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "worker script unavailable"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Service-Worker-Allowed", "/")
	c.Data(http.StatusOK, "application/javascript", script)
}
