package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/spacemmo/internal/entity"
	"github.com/annel0/spacemmo/internal/logging"
	"github.com/annel0/spacemmo/internal/middleware"
	"github.com/annel0/spacemmo/internal/storage"
)

// RestServer представляет REST API сервер игрового мира
type RestServer struct {
	router  *gin.Engine
	manager *entity.Manager
	store   *storage.SnapshotStore
	port    string
	metrics *ServerMetrics
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port    string                 // порт для запуска сервера
	Manager *entity.Manager        // менеджер сущностей мира
	Store   *storage.SnapshotStore // хранилище снимков, может быть nil
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("rest_api"))

	promMw := middleware.NewPrometheusMiddleware("rest_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:  router,
		manager: config.Manager,
		store:   config.Store,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logging.GetAPILogger(),
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/healthz", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)

		world := api.Group("/world")
		{
			world.GET("/stats", rs.handleWorldStats)
			world.GET("/visible", rs.handleVisible)
		}

		entities := api.Group("/entities")
		{
			entities.POST("", rs.handleSpawnEntity)
			entities.GET("/:id", rs.handleGetEntity)
			entities.DELETE("/:id", rs.handleRemoveEntity)
			entities.POST("/:id/move", rs.handleMoveEntity)
		}

		snapshots := api.Group("/snapshots")
		{
			snapshots.POST("", rs.handleSaveSnapshot)
			snapshots.GET("", rs.handleListSnapshots)
		}
	}
}

// Start запускает REST сервер. Блокирует вызывающую горутину
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API сервер запускается на %s", rs.port)

	if err := rs.router.Run(rs.port); err != nil {
		return fmt.Errorf("ошибка запуска REST сервера: %w", err)
	}
	return nil
}

// Router возвращает gin-роутер, используется в тестах
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}
