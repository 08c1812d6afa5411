package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"procure-forecast-api/pkg/models"
	"procure-forecast-api/pkg/services"
)

// ForecastHandler は予測の実行・インポート・エクスポートのハンドラです。
type ForecastHandler struct {
	forecast *services.ForecastService
	codec    *services.CodecService
	combos   *services.CombinationService
	dataset  *services.DatasetService
	reports  *services.ReportStoreService // 未設定の場合はnil（アーカイブはスキップ）
}

// NewForecastHandler は新しいForecastHandlerを生成します。
func NewForecastHandler(forecast *services.ForecastService, codec *services.CodecService, combos *services.CombinationService, dataset *services.DatasetService, reports *services.ReportStoreService) *ForecastHandler {
	return &ForecastHandler{
		forecast: forecast,
		codec:    codec,
		combos:   combos,
		dataset:  dataset,
		reports:  reports,
	}
}

// Run は1つの (part, vendor, country) キーの予測を実行します。
func (h *ForecastHandler) Run(c *gin.Context) {
	var req models.ForecastRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "part_number, vendor, country は必須です"})
		return
	}

	key := models.CombinationKey{PartNumber: req.PartNumber, Vendor: req.Vendor, Country: req.Country}
	result, err := h.forecast.RunForecast(c.Request.Context(), key, req.ConfidenceLevel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunBulk は全組み合わせの一括予測を実行します。
func (h *ForecastHandler) RunBulk(c *gin.Context) {
	var req models.BenchmarkRunRequest
	// ボディは省略可能（信頼水準のみ）
	_ = c.ShouldBindJSON(&req)

	report, err := h.forecast.RunBulkForecast(c.Request.Context(), req.ConfidenceLevel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.archiveReport(c.Request.Context(), "forecast", report,
		fmt.Sprintf("一括予測: %d/%d 成功", report.Succeeded, report.Total))

	c.JSON(http.StatusOK, report)
}

// Import は予測ベースラインCSVを読み込み、キーごとに集約してデータセットに取り込みます。
func (h *ForecastHandler) Import(c *gin.Context) {
	text, err := readUploadText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, warnings := h.codec.ParseForecastCSV(text)
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "有効なレコードが1件も解析できませんでした", "warnings": warnings})
		return
	}

	results := h.combos.GroupForecastRows(rows)
	for _, result := range results {
		h.dataset.UpsertForecast(result)
	}
	log.Printf("✅ 予測CSVインポート完了: %d 行 → %d キー", len(rows), len(results))

	c.JSON(http.StatusOK, gin.H{
		"rows":     len(rows),
		"results":  len(results),
		"warnings": warnings,
	})
}

// GetResults は保存済みの予測結果を挿入順で返します。
func (h *ForecastHandler) GetResults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.dataset.Forecasts()})
}

// Export は予測結果をCSVとしてダウンロードさせます。
func (h *ForecastHandler) Export(c *gin.Context) {
	results := h.dataset.Forecasts()
	if len(results) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "エクスポートする予測結果がありません"})
		return
	}
	writeCSVAttachment(c, exportFilename("forecast_export"), h.codec.GenerateForecastCSV(results))
}

// archiveReport は実行結果をレポートアーカイブに保存する（ベストエフォート）。
func (h *ForecastHandler) archiveReport(ctx context.Context, reportType string, body interface{}, summary string) {
	if h.reports == nil {
		return
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		log.Printf("⚠️ レポート本文のJSON化に失敗: %v", err)
		return
	}
	if _, err := h.reports.StoreReport(ctx, reportType, string(bodyJSON), summary); err != nil {
		log.Printf("⚠️ レポートのアーカイブに失敗: %v", err)
	}
}
