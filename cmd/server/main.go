package main

import (
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"shallot/internal/db"
	"shallot/internal/logger"
	"shallot/internal/middleware"
	"shallot/internal/router"
	"shallot/internal/services"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	logger.Init(os.Getenv("GIN_MODE") != "release")
	if envErr != nil {
		logger.L().Info("no .env file found, reading env vars from system")
	}

	// Initialize Database
	db.Init()

	// 初始化异步排名服务并挂上每日全量刷新
	services.GetRankingService().StartScheduledRankRefresh()

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("shallot_session", store))

	// Middleware
	r.Use(middleware.LoadUser())

	router.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.L().Infof("shallot server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.L().Fatal(err)
	}
}
