package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// contentTypes overrides the MIME type of generated artifacts by extension.
// Source files are served as text so browsers display rather than download them.
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".md":    "text/markdown; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".swift": "text/plain; charset=utf-8",
	".kt":    "text/plain; charset=utf-8",
	".py":    "text/plain; charset=utf-8",
	".java":  "text/plain; charset=utf-8",
	".go":    "text/plain; charset=utf-8",
	".ts":    "text/plain; charset=utf-8",
	".rb":    "text/plain; charset=utf-8",
	".rs":    "text/plain; charset=utf-8",
	".cs":    "text/plain; charset=utf-8",
	".cpp":   "text/plain; charset=utf-8",
	".php":   "text/plain; charset=utf-8",
	".scala": "text/plain; charset=utf-8",
	".dart":  "text/plain; charset=utf-8",
	".sql":   "text/plain; charset=utf-8",
}

func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

// resolveOutput maps a URL path below /output/ to a file under root. It
// returns false for paths that escape root.
func resolveOutput(root, urlPath string) (string, bool) {
	for _, seg := range strings.Split(filepath.ToSlash(urlPath), "/") {
		if seg == ".." {
			return "", false
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if rel == "" {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(rel)), true
}

func handleOutput(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		noCache(c)
		name := c.Param("path")
		file, ok := resolveOutput(root, name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "File not found: " + strings.TrimPrefix(name, "/")})
			return
		}
		f, err := os.Open(file)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "File not found: " + strings.TrimPrefix(name, "/")})
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "File not found: " + strings.TrimPrefix(name, "/")})
			return
		}
		if ct, ok := contentTypes[strings.ToLower(filepath.Ext(file))]; ok {
			c.Header("Content-Type", ct)
		}
		// ServeContent, unlike ServeFile, does not redirect .../index.html.
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	}
}
