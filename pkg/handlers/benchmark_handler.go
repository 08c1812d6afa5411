package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"procure-forecast-api/pkg/models"
	"procure-forecast-api/pkg/services"
)

// BenchmarkHandler は交渉レートのベンチマーク評価のハンドラです。
type BenchmarkHandler struct {
	forecast *services.ForecastService
	codec    *services.CodecService
	dataset  *services.DatasetService
	archive  *ForecastHandler // レポートアーカイブを共有
}

// NewBenchmarkHandler は新しいBenchmarkHandlerを生成します。
func NewBenchmarkHandler(forecast *services.ForecastService, codec *services.CodecService, dataset *services.DatasetService, archive *ForecastHandler) *BenchmarkHandler {
	return &BenchmarkHandler{
		forecast: forecast,
		codec:    codec,
		dataset:  dataset,
		archive:  archive,
	}
}

// Run は読み込み済みの交渉レート全件をベンチマーク評価します。
func (h *BenchmarkHandler) Run(c *gin.Context) {
	var req models.BenchmarkRunRequest
	_ = c.ShouldBindJSON(&req)

	results, err := h.forecast.RunBenchmark(c.Request.Context(), req.ConfidenceLevel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if h.archive != nil {
		h.archive.archiveReport(c.Request.Context(), "benchmark", results,
			fmt.Sprintf("ベンチマーク: %d 件評価", len(results)))
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetResults は保存済みのベンチマーク結果を返します。
// クエリ price_status / lead_time_status で絞り込めます。
func (h *BenchmarkHandler) GetResults(c *gin.Context) {
	priceStatus := c.Query("price_status")
	leadTimeStatus := c.Query("lead_time_status")

	results := h.dataset.Benchmarks()
	filtered := make([]models.BenchmarkResult, 0, len(results))
	for _, r := range results {
		if priceStatus != "" && r.PriceStatus != priceStatus {
			continue
		}
		if leadTimeStatus != "" && r.LeadTimeStatus != leadTimeStatus {
			continue
		}
		filtered = append(filtered, r)
	}

	c.JSON(http.StatusOK, gin.H{"results": filtered})
}

// Export はベンチマーク結果をCSVとしてダウンロードさせます。
func (h *BenchmarkHandler) Export(c *gin.Context) {
	results := h.dataset.Benchmarks()
	if len(results) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "エクスポートするベンチマーク結果がありません"})
		return
	}
	writeCSVAttachment(c, exportFilename("benchmark_export"), h.codec.GenerateBenchmarkCSV(results))
}
