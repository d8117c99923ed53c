package router

import (
	_ "github.com/erp/settlement/docs" // registers the OpenAPI document
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SwaggerPath is where the API browser is mounted
const SwaggerPath = "/swagger/*any"

// RegisterSwagger mounts the Swagger UI and doc.json on engine behind guards
func RegisterSwagger(engine *gin.Engine, guards ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, guards...), ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET(SwaggerPath, handlers...)
}
