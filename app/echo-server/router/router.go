package router

import (
	"welfareBot/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupUserRoutes(api *echo.Group, handler *rest.UserHandler) {
	users := api.Group("/users")

	users.POST("/register", handler.Register)
	users.POST("/login", handler.Login)
	users.GET("/:id", handler.GetUserByID)
	users.POST("/:id/reject-benefit", handler.RejectBenefit)
}

func SetupBenefitRoutes(api *echo.Group, handler *rest.BenefitHandler) {
	benefits := api.Group("/benefits")

	// registered before /:benefitId so the static segment wins
	benefits.GET("/locations", handler.GetLocations)
	benefits.GET("/:benefitId", handler.GetBenefit)
}

func SetRecommendationRoutes(api *echo.Group, handler *rest.ChatHandler, session echo.MiddlewareFunc) {
	reco := api.Group("/recommendations")
	reco.POST("/chat", handler.Chat, session)
	reco.POST("/followup", handler.Followup)
	reco.POST("/explain", handler.Explain)
}

func SetPolicyAdminRoutes(api *echo.Group, handler *rest.PolicyAdminHandler) {
	admin := api.Group("/admin")

	admin.GET("/policy", handler.GetPolicy)
	admin.GET("/users/:id/match-logs", handler.GetMatchLogs)
}
