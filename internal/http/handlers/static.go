package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// Static serves front-end files from dir for GET and HEAD requests no route
// matched. "/" and directories map to their index.html; directory listings
// are never produced. Everything else gets the JSON 404.
func Static(dir string) gin.HandlerFunc {
	root := filepath.Clean(dir)
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
			return
		}
		rel := path.Clean("/" + c.Request.URL.Path)
		if strings.Contains(rel, "\x00") {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
			return
		}
		p := filepath.Join(root, filepath.FromSlash(rel))

		fi, err := os.Stat(p)
		if err == nil && fi.IsDir() {
			p = filepath.Join(p, "index.html")
			fi, err = os.Stat(p)
		}
		if err != nil || !fi.Mode().IsRegular() || isHiddenPath(rel) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
			return
		}
		c.File(p)
	}
}

// isHiddenPath reports whether any segment starts with a dot (.env, .git).
func isHiddenPath(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
