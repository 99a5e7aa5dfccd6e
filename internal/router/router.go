package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"sudooom.impostor/internal/config"
	"sudooom.impostor/internal/connection"
	"sudooom.impostor/internal/handler"
	"sudooom.impostor/internal/health"
	"sudooom.impostor/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	manager *connection.Manager,
	roomHandler *handler.RoomHandler,
	checker *health.Checker,
) *gin.Engine {
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(slog.Default()))
	r.Use(middleware.CORS(cfg.HTTP.AllowedOrigins))

	// 健康检查
	r.GET("/health", gin.WrapH(checker))
	r.GET("/ready", gin.WrapF(checker.ServeReady))

	v1 := r.Group("/api/v1")
	{
		// 建立会话（无需 X-Session-ID）
		v1.POST("/rooms", roomHandler.CreateRoom)
		v1.POST("/rooms/:code/players", roomHandler.JoinRoom)
		v1.GET("/rooms/:code/results", roomHandler.ListResults)

		authenticated := v1.Group("")
		authenticated.Use(middleware.SessionAuth(manager))
		{
			authenticated.POST("/heartbeat", roomHandler.Heartbeat)

			room := authenticated.Group("/rooms/:code")
			{
				room.GET("", roomHandler.GetRoom)
				room.GET("/events", roomHandler.Events)
				room.GET("/ws", roomHandler.EventsWS)
				room.POST("/start", roomHandler.StartGame)
				room.POST("/ready", roomHandler.MarkReady)
				room.POST("/votes", roomHandler.SubmitVote)
				room.POST("/conclude", roomHandler.ConcludeVoting)
				room.POST("/play-again", roomHandler.PlayAgain)
				room.DELETE("/players/me", roomHandler.LeaveRoom)
			}
		}
	}

	return r
}
