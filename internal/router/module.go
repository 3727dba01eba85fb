package router

import "github.com/gin-gonic/gin"

// Module is one routable feature slice (auth, users, invitations, payments,
// notifications). Each module owns its routes and the guards in front of them.
type Module interface {
	Register(rg *gin.RouterGroup)
}
