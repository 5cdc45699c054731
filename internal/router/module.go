package router

import "github.com/gin-gonic/gin"

// Module describes a feature module that can register its routes. Routes that
// must live outside the /api prefix (the websocket upgrade, health checks)
// register on the engine; everything else on the api group.
type Module interface {
	Register(engine *gin.Engine, api *gin.RouterGroup)
}
