package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"friendgraph/config"
	"friendgraph/database"
	"friendgraph/handlers"
	"friendgraph/middleware"
	"friendgraph/mysqlstore"
	"friendgraph/relationship"
	"friendgraph/websocket"
)

func main() {
	config.Load()

	if err := database.Connect(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	if err := database.CreateTables(); err != nil {
		logrus.WithError(err).Fatal("Failed to create tables")
	}

	store := mysqlstore.New(database.DB)
	graph := relationship.NewGraph(store, store, relationship.Config{
		ResolveConcurrency: config.Cfg.ResolveConcurrency,
		ResolveTimeout:     config.Cfg.StoreTimeout,
		SearchDebounce:     config.Cfg.SearchDebounce,
	})

	handlers.Init(graph)
	websocket.InitHub(graph)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", middleware.AuthMiddleware(), handlers.Logout)
		auth.POST("/refresh", middleware.AuthMiddleware(), handlers.RefreshToken)
	}

	users := r.Group("/api/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", handlers.GetCurrentUser)
		users.PUT("/me", handlers.UpdateCurrentUser)
		users.GET("/search", handlers.SearchUsers)
	}

	friends := r.Group("/api/friends")
	friends.Use(middleware.AuthMiddleware())
	{
		friends.GET("", handlers.GetFriends)
		friends.GET("/requests", handlers.GetFriendRequests)
		friends.GET("/status/:user_id", handlers.GetFriendStatus)
		friends.POST("/request", handlers.SendFriendRequest)
		friends.POST("/cancel/:user_id", handlers.CancelFriendRequest)
		friends.POST("/accept/:user_id", handlers.AcceptFriendRequest)
		friends.POST("/reject/:user_id", handlers.RejectFriendRequest)
		friends.DELETE("/:user_id", handlers.DeleteFriend)
	}

	r.GET("/ws", websocket.HandleWebSocket)

	logrus.WithField("addr", config.Cfg.ServerAddr).Info("Server starting")
	if err := r.Run(config.Cfg.ServerAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}
