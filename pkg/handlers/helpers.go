package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"procure-forecast-api/pkg/azure"
	"procure-forecast-api/pkg/services"
)

// readUploadText はアップロードされたファイルをテーブルテキストとして読み込む。
// .xlsxの場合は先頭シートの行をカンマ区切りテキストに変換してから返すため、
// 以降の処理はCSVアップロードと同じコーデックを通る。
func readUploadText(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("ファイルが指定されていません (multipart field 'file')")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("ファイルのオープンに失敗: %w", err)
	}
	defer file.Close()

	if strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
		f, err := excelize.OpenReader(file)
		if err != nil {
			return "", fmt.Errorf("Excelファイルの読み込みに失敗: %w", err)
		}
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return "", fmt.Errorf("Excelシートの行取得に失敗: %w", err)
		}
		lines := make([]string, len(rows))
		for i, row := range rows {
			lines[i] = strings.Join(row, ",")
		}
		return strings.Join(lines, "\n"), nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("ファイルの読み取りに失敗: %w", err)
	}
	return string(data), nil
}

// writeCSVAttachment はCSVをダウンロードレスポンスとして書き出す
func writeCSVAttachment(c *gin.Context, filename string, content string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv", []byte(content))
}

// respondServiceError はサービス層のエラーをHTTPステータスに対応付ける。
// 前提条件エラーは400、レート制限は429、一時障害は503、その他の外部エンジン障害は502。
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInsufficientData),
		errors.Is(err, services.ErrNoHistoricalData),
		errors.Is(err, services.ErrNoNegotiations),
		errors.Is(err, services.ErrNoForecasts),
		errors.Is(err, services.ErrInvalidConfidence):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, azure.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})

	case errors.Is(err, azure.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	case errors.Is(err, azure.ErrUnauthenticated),
		errors.Is(err, azure.ErrMalformedResponse),
		errors.Is(err, azure.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
