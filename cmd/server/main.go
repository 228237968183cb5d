package main

import (
	"flag"
	"log/slog"
	"os"

	"presence-track/internal/cache"
	"presence-track/internal/config"
	"presence-track/internal/handler"
	applog "presence-track/internal/logger"
	"presence-track/internal/middleware"
	"presence-track/internal/service"
	"presence-track/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	godotenv.Load()
	cfg := config.Load(*configFile)
	applog.Init(cfg.Log)

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := store.AutoMigrate(db); err != nil {
		slog.Error("migrate failed", "err", err)
		os.Exit(1)
	}
	stores := store.NewGormStores(db)

	statusCache := cache.NewMemory(cfg.CacheTTL())
	eventSvc := service.NewEventService(stores, statusCache, cfg.DebounceWindow(), cfg.ClockSkew())
	attendanceSvc := service.NewAttendanceService(stores, cfg.Attendance)
	locationSvc := service.NewLocationService(stores)
	analyticsSvc := service.NewAnalyticsService(stores, cfg.Analytics)

	eventH := handler.NewEventHandler(eventSvc, attendanceSvc, locationSvc)
	attendanceH := handler.NewAttendanceHandler(attendanceSvc)
	locationH := handler.NewLocationHandler(locationSvc)
	analyticsH := handler.NewAnalyticsHandler(analyticsSvc)
	adminH := handler.NewAdminHandler(stores)

	r := gin.Default()
	r.Use(middleware.RequestLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	api := r.Group("/api")
	api.POST("/events", eventH.Append)
	api.GET("/events/summary", eventH.Summary)
	api.GET("/status", eventH.Status)
	api.GET("/status/bulk", eventH.StatusBulk)

	api.PATCH("/attendance-records", attendanceH.Patch)
	api.GET("/attendance-records", attendanceH.List)

	api.GET("/location-analytics", locationH.Analytics)
	api.POST("/location-analytics/recompute", locationH.Recompute)
	api.GET("/movements", locationH.Movements)
	api.POST("/task-assignments", locationH.AssignTask)
	api.POST("/task-assignments/:id/complete", locationH.CompleteTask)

	api.GET("/analytics/patterns", analyticsH.Patterns)
	api.GET("/analytics/forecast", analyticsH.Forecast)

	api.POST("/employees", adminH.CreateEmployee)
	api.GET("/employees", adminH.ListEmployees)
	api.GET("/employees/:id", adminH.GetEmployee)
	api.POST("/locations", adminH.CreateLocation)
	api.GET("/locations", adminH.ListLocations)

	slog.Info("server starting", "addr", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		slog.Error("server failed", "err", err)
	}
}
