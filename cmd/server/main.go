package main

import (
	"log"
	"net/http"

	config "procure-forecast-api/configs"
	"procure-forecast-api/pkg/handlers"
	"procure-forecast-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService()
	codecService := services.NewCodecService()
	outlierService := services.NewOutlierService()
	sampleDataService := services.NewSampleDataService()
	combinationService := services.NewCombinationService()
	datasetService := services.NewDatasetService()
	azureOpenAIService := services.NewAzureOpenAIService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
	)
	forecastService := services.NewForecastService(
		azureOpenAIService,
		datasetService,
		combinationService,
		cfg.ForecastModel,
		cfg.ForecastBatchSize,
	)

	// レポートアーカイブはQdrantが設定されている場合のみ有効化する
	var reportStoreService *services.ReportStoreService
	if cfg.QdrantURL != "" {
		var err error
		reportStoreService, err = services.NewReportStoreService(azureOpenAIService, cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			log.Printf("警告: レポートアーカイブの初期化に失敗しました（アーカイブなしで続行）: %v", err)
			reportStoreService = nil
		}
	} else {
		log.Println("QDRANT_URL が未設定のため、レポートアーカイブは無効です")
	}

	// ハンドラーの初期化
	dataHandler := handlers.NewDataHandler(codecService, outlierService, sampleDataService, datasetService)
	forecastHandler := handlers.NewForecastHandler(forecastService, codecService, combinationService, datasetService, reportStoreService)
	benchmarkHandler := handlers.NewBenchmarkHandler(forecastService, codecService, datasetService, forecastHandler)
	reportHandler := handlers.NewReportHandler(reportStoreService)
	adminHandler := handlers.NewAdminHandler(cfg, reportStoreService != nil)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware()) // ロギングミドルウェアをグローバルに適用
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" || apiKey == "default_secret_key" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}

		// データセット管理API
		data := v1.Group("/data")
		{
			data.POST("/historical/upload", dataHandler.UploadHistorical)
			data.POST("/negotiations/upload", dataHandler.UploadNegotiations)
			data.POST("/reset", dataHandler.Reset)
			data.GET("/summary", dataHandler.GetSummary)
			data.GET("/sample/historical", dataHandler.DownloadHistoricalSample)
			data.GET("/sample/negotiation", dataHandler.DownloadNegotiationSample)
			data.GET("/template/forecast", dataHandler.DownloadForecastTemplate)
		}

		// 予測API
		forecast := v1.Group("/forecast")
		{
			forecast.POST("/run", forecastHandler.Run)
			forecast.POST("/bulk", forecastHandler.RunBulk)
			forecast.POST("/import", forecastHandler.Import)
			forecast.GET("/results", forecastHandler.GetResults)
			forecast.GET("/export", forecastHandler.Export)
		}

		// ベンチマークAPI
		benchmark := v1.Group("/benchmark")
		{
			benchmark.POST("/run", benchmarkHandler.Run)
			benchmark.GET("/results", benchmarkHandler.GetResults)
			benchmark.GET("/export", benchmarkHandler.Export)
		}

		// レポートアーカイブAPI
		reports := v1.Group("/reports")
		{
			reports.GET("", reportHandler.List)
			reports.GET("/:id", reportHandler.Get)
			reports.DELETE("/:id", reportHandler.Delete)
			reports.DELETE("", reportHandler.DeleteAll)
		}
	}

	log.Printf("Starting Procure Forecast API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
