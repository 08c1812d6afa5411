package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"procure-forecast-api/pkg/services"
)

// ReportHandler はアーカイブ済みレポートの参照・削除のハンドラです。
// レポートストアが未設定（Qdrant未接続）の場合、各操作は503を返します。
type ReportHandler struct {
	reports *services.ReportStoreService
}

// NewReportHandler は新しいReportHandlerを生成します。
func NewReportHandler(reports *services.ReportStoreService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) unavailable(c *gin.Context) bool {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "レポートアーカイブが設定されていません"})
		return true
	}
	return false
}

// List はアーカイブ済みレポートのヘッダー一覧を返します。
// クエリ type で "forecast" / "benchmark" に絞り込めます。
func (h *ReportHandler) List(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	headers, err := h.reports.ListReports(c.Request.Context(), c.Query("type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": headers})
}

// Get は指定IDのレポート本文を返します。
func (h *ReportHandler) Get(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	header, body, err := h.reports.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// 本文はJSON文字列として保存されているため、そのまま構造化して返す
	var parsed interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		parsed = body
	}

	c.JSON(http.StatusOK, gin.H{"header": header, "body": parsed})
}

// Delete は指定IDのレポートを削除します。
func (h *ReportHandler) Delete(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	if err := h.reports.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "レポートを削除しました"})
}

// DeleteAll は全レポートを削除します。
func (h *ReportHandler) DeleteAll(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	if err := h.reports.DeleteAllReports(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "全レポートを削除しました"})
}
