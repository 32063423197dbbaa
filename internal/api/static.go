package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// staticFiles 从本地目录提供静态资源，"/" 对应 index.html
type staticFiles struct {
	root string
}

func newStaticFiles(root string) *staticFiles {
	return &staticFiles{root: root}
}

// serve 命中文件时写出响应并返回true
func (s *staticFiles) serve(c *gin.Context) bool {
	if s.root == "" {
		return false
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return false
	}

	name := path.Clean("/" + c.Request.URL.Path)
	if name == "/" {
		name = "/index.html"
	}
	full := filepath.Join(s.root, filepath.FromSlash(name))

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return false
	}

	c.File(full)
	return true
}
