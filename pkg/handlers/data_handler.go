package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"procure-forecast-api/pkg/services"
)

// DataHandler はデータセットの管理（アップロード・サンプル生成・リセット）のハンドラです。
type DataHandler struct {
	codec   *services.CodecService
	outlier *services.OutlierService
	sample  *services.SampleDataService
	dataset *services.DatasetService
}

// NewDataHandler は新しいDataHandlerを生成します。
func NewDataHandler(codec *services.CodecService, outlier *services.OutlierService, sample *services.SampleDataService, dataset *services.DatasetService) *DataHandler {
	return &DataHandler{
		codec:   codec,
		outlier: outlier,
		sample:  sample,
		dataset: dataset,
	}
}

// UploadHistorical は履歴データのアップロードを処理します。
// クエリ cleanse=true でIQR法による外れ値除去を適用します。
func (h *DataHandler) UploadHistorical(c *gin.Context) {
	text, err := readUploadText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, warnings := h.codec.ParseHistoricalCSV(text)
	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "有効なレコードが1件も解析できませんでした", "warnings": warnings})
		return
	}

	removed := 0
	if c.DefaultQuery("cleanse", "false") == "true" {
		records, removed = h.outlier.Cleanse(records)
		log.Printf("🧹 外れ値除去: %d 件削除", removed)
	}

	h.dataset.ReplaceHistorical(records, removed)
	log.Printf("✅ 履歴データ読み込み完了: %d 件", len(records))

	c.JSON(http.StatusOK, gin.H{
		"count":            len(records),
		"removed_outliers": removed,
		"warnings":         warnings,
	})
}

// UploadNegotiations は交渉レートのアップロードを処理します。
// 複数ファイルを順次アップロードした場合、結果は追記されます。
func (h *DataHandler) UploadNegotiations(c *gin.Context) {
	text, err := readUploadText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rates, warnings := h.codec.ParseNegotiationCSV(text)
	if len(rates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "有効なレコードが1件も解析できませんでした", "warnings": warnings})
		return
	}

	h.dataset.AppendNegotiations(rates)
	log.Printf("✅ 交渉レート読み込み完了: %d 件", len(rates))

	c.JSON(http.StatusOK, gin.H{
		"count":    len(rates),
		"total":    len(h.dataset.Negotiations()),
		"warnings": warnings,
	})
}

// Reset は作業データセットを初期状態に戻します。
func (h *DataHandler) Reset(c *gin.Context) {
	h.dataset.Reset()
	c.JSON(http.StatusOK, gin.H{"message": "データセットをリセットしました"})
}

// GetSummary は現在のデータセットの概況を返します。
func (h *DataHandler) GetSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.dataset.Summary())
}

// DownloadHistoricalSample は合成履歴データのCSVを生成して返します。
// クエリ rows で件数を指定できます（デフォルト: 100）。
// template=true の場合はヘッダ行のみのテンプレートを返します。
func (h *DataHandler) DownloadHistoricalSample(c *gin.Context) {
	if c.Query("template") == "true" {
		writeCSVAttachment(c, "historical_upload_template.csv", h.codec.GenerateHistoricalCSV(nil))
		return
	}

	rows := 100
	if v, err := strconv.Atoi(c.DefaultQuery("rows", "100")); err == nil && v > 0 {
		rows = v
	}

	csv := h.codec.GenerateHistoricalCSV(h.sample.Generate(rows))
	writeCSVAttachment(c, "sample_historical_data.csv", csv)
}

// DownloadNegotiationSample は交渉レートのサンプルCSVを返します。
func (h *DataHandler) DownloadNegotiationSample(c *gin.Context) {
	writeCSVAttachment(c, "sample_negotiation_rates.csv", h.codec.GenerateNegotiationSampleCSV())
}

// DownloadForecastTemplate は予測ベースラインのテンプレートCSVを返します。
func (h *DataHandler) DownloadForecastTemplate(c *gin.Context) {
	writeCSVAttachment(c, "forecast_baseline_template.csv", h.codec.GenerateForecastTemplateCSV())
}

// exportFilename は現在日付入りのエクスポートファイル名を組み立てます
func exportFilename(prefix string) string {
	return prefix + "_" + time.Now().Format("2006-01-02") + ".csv"
}
