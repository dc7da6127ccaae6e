package router

import (
	"github.com/gin-gonic/gin"

	"shallot/internal/handlers"
	"shallot/internal/middleware"
)

// RegisterRoutes 注册全部路由
func RegisterRoutes(r *gin.Engine) {
	feedHandler := handlers.NewFeedHandler()
	postHandler := handlers.NewPostHandler()
	commentHandler := handlers.NewCommentHandler()
	voteHandler := handlers.NewVoteHandler()
	communityHandler := handlers.NewCommunityHandler()
	userHandler := handlers.NewUserHandler()
	searchHandler := handlers.NewSearchHandler()
	notificationHandler := handlers.NewNotificationHandler()
	sessionHandler := handlers.NewSessionHandler()
	webhookHandler := handlers.NewWebhookHandler()
	rssHandler := handlers.NewRSSHandler()

	// 身份提供方回调，鉴权走共享密钥，不走会话
	r.POST("/webhooks/identity", webhookHandler.Identity)

	// 订阅源
	r.GET("/c/:name/rss", rssHandler.Community)

	api := r.Group("/api")
	{
		// 公开接口，匿名可访问
		api.GET("/feed", feedHandler.Get)
		api.GET("/posts/:pid", postHandler.Detail)
		api.GET("/communities", communityHandler.List)
		api.GET("/users/:username", userHandler.Profile)
		api.GET("/search", searchHandler.Search)
		api.POST("/session", sessionHandler.Create)

		// 需要登录
		authorized := api.Group("/")
		authorized.Use(middleware.AuthRequired())
		{
			authorized.GET("/me", userHandler.Me)
			authorized.DELETE("/session", sessionHandler.Destroy)

			authorized.POST("/posts", postHandler.Create)
			authorized.POST("/posts/:pid/save", postHandler.Save)
			authorized.POST("/posts/:pid/hide", postHandler.Hide)
			authorized.POST("/posts/:pid/comments", commentHandler.Create)
			authorized.POST("/comments/:cid/save", commentHandler.Save)

			authorized.POST("/vote/:type/:id", voteHandler.Vote)

			authorized.POST("/communities", communityHandler.Create)
			authorized.POST("/communities/:name/join", communityHandler.Join)
			authorized.POST("/communities/:name/favorite", communityHandler.Favorite)

			authorized.GET("/notifications", notificationHandler.List)
			authorized.POST("/notifications/:id/read", notificationHandler.Read)
			authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		}
	}
}
