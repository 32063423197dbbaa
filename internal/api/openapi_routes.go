package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/game-catalog/internal/errors"
)

// DefaultOpenAPIFile 默认的OpenAPI文档路径
const DefaultOpenAPIFile = "docs/api/openapi.yaml"

// registerOpenAPIRoutes 提供 /openapi 与 /docs/ui
func registerOpenAPIRoutes(engine *gin.Engine, file string) {
	if file == "" {
		file = DefaultOpenAPIFile
	}
	serve := serveOpenAPI(file)
	engine.GET("/openapi", serve)
	engine.GET("/openapi.yaml", serve)
	engine.GET("/docs/ui", serveSwaggerUI)
}

func serveOpenAPI(file string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := os.Stat(file); err != nil {
			respondError(c, apperrors.New(apperrors.ErrNotFound, "OpenAPI文档不存在"))
			return
		}
		c.Header("Content-Type", "application/yaml; charset=utf-8")
		c.File(file)
	}
}

func serveSwaggerUI(c *gin.Context) {
	const html = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Game Catalog API - Swagger UI</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi',
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
        layout: 'BaseLayout'
      })
    </script>
  </body>
</html>`
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
