package auth

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, authService AuthServicePort) {
	authController := &AuthController{AuthService: authService}

	userGroup := r.Group("/api/auth")
	{
		userGroup.POST("/register", authController.Register)
		userGroup.POST("/login", authController.Login)
		userGroup.POST("/logout", authController.Logout)
		userGroup.POST("/refresh", authController.Refresh)
		userGroup.GET("/me", authController.Me)
	}
}
