package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"procure-forecast-api/pkg/azure"
	"procure-forecast-api/pkg/models"
)

// AzureOpenAIService はAzure OpenAIを推論エンジンとして使う ForecastEngine 実装。
// プロンプトの組み立てと応答JSONの解析のみを担当し、予測の中身はモデルに委譲する。
type AzureOpenAIService struct {
	client *azure.OpenAIClient
}

// NewAzureOpenAIService 新しいAzure OpenAI サービスを作成
func NewAzureOpenAIService(endpoint, apiKey, apiVersion, chatDeploymentName, embeddingDeploymentName string) *AzureOpenAIService {
	return &AzureOpenAIService{
		client: azure.NewOpenAIClient(endpoint, apiKey, apiVersion, chatDeploymentName, embeddingDeploymentName),
	}
}

// engineForecastResponse はエンジンが返す予測JSONの期待形
type engineForecastResponse struct {
	Forecast []models.ForecastPoint `json:"forecast"`
	Summary  models.ForecastSummary `json:"summary"`
}

// engineBenchmarkResponse はエンジンが返すベンチマークJSONの期待形
type engineBenchmarkResponse struct {
	PriceStatus     string `json:"price_status"`
	LeadTimeStatus  string `json:"lead_time_status"`
	ConfidenceMatch bool   `json:"confidence_match"`
	Comment         string `json:"comment"`
}

var validStatuses = map[string]bool{
	"favorable": true,
	"warning":   true,
	"critical":  true,
	"anomaly":   true,
}

// extractJSON はモデル応答からJSON本体を取り出す。
// コードフェンス（```json ... ```）で囲まれて返るケースに対応する。
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if i := strings.LastIndex(content, "```"); i >= 0 {
			content = content[:i]
		}
	}
	return strings.TrimSpace(content)
}

// GenerateForecast は1つの (part, vendor, country) キーの予測をエンジンに依頼する。
// history は時系列昇順に整列済みであることを呼び出し側が保証する。
func (aos *AzureOpenAIService) GenerateForecast(ctx context.Context, key models.CombinationKey, history []models.HistoricalRecord, confidence int, model string) (models.ForecastResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return models.ForecastResult{}, fmt.Errorf("履歴データのJSON化に失敗: %w", err)
	}

	messages := []azure.ChatMessage{
		{
			Role: "system",
			Content: "あなたは製造業の調達価格とリードタイムの予測専門家です。" +
				"与えられた履歴データから今後12ヶ月の月次予測を行い、指定されたJSON形式のみで回答してください。" +
				"説明文やコードフェンスは不要です。",
		},
		{
			Role: "user",
			Content: fmt.Sprintf(
				"部品番号: %s\nベンダー: %s\n国: %s\n信頼水準: %d%%\n使用モデル: %s\n\n履歴データ:\n%s\n\n"+
					"以下の形式のJSONのみを返してください:\n"+
					`{"forecast":[{"date":"YYYY-MM-DD","predicted_price":0,"predicted_lead_time":0,"confidence_interval_upper":0,"confidence_interval_lower":0}],`+
					`"summary":{"avg_predicted_price":0,"avg_predicted_lead_time":0,"price_trend":"up|down|stable","lead_time_trend":"up|down|stable","optimized_order_quantity":0}}`,
				key.PartNumber, key.Vendor, key.Country, confidence, model, string(historyJSON)),
		},
	}

	content, err := aos.client.ChatCompletionText(ctx, messages, 4000, 0.2)
	if err != nil {
		return models.ForecastResult{}, err
	}

	var parsed engineForecastResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return models.ForecastResult{}, fmt.Errorf("%w: 予測応答の解析に失敗: %v", azure.ErrMalformedResponse, err)
	}
	if len(parsed.Forecast) == 0 {
		return models.ForecastResult{}, fmt.Errorf("%w: 予測応答にforecastが含まれていません", azure.ErrMalformedResponse)
	}

	return models.ForecastResult{
		PartNumber: key.PartNumber,
		Vendor:     key.Vendor,
		Country:    key.Country,
		Forecast:   parsed.Forecast,
		Summary:    parsed.Summary,
	}, nil
}

// EvaluateBenchmark は交渉レート1件を予測ベースラインと照合してエンジンに評価させる。
func (aos *AzureOpenAIService) EvaluateBenchmark(ctx context.Context, rate models.NegotiatedRate, baseline models.BaselineContext, confidence int) (models.BenchmarkResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	baselineJSON, err := json.Marshal(baseline)
	if err != nil {
		return models.BenchmarkResult{}, fmt.Errorf("ベースラインのJSON化に失敗: %w", err)
	}

	messages := []azure.ChatMessage{
		{
			Role: "system",
			Content: "あなたは調達交渉レートの評価専門家です。" +
				"提案レートを予測ベースラインと比較し、指定されたJSON形式のみで回答してください。" +
				"各ステータスは favorable / warning / critical / anomaly のいずれかです。",
		},
		{
			Role: "user",
			Content: fmt.Sprintf(
				"提案価格: %g\n提案リードタイム: %d日\n信頼水準: %d%%\n\n予測ベースライン:\n%s\n\n"+
					"以下の形式のJSONのみを返してください:\n"+
					`{"price_status":"favorable","lead_time_status":"warning","confidence_match":true,"comment":"..."}`,
				rate.ProposedPrice, rate.ProposedLeadTime, confidence, string(baselineJSON)),
		},
	}

	content, err := aos.client.ChatCompletionText(ctx, messages, 800, 0.2)
	if err != nil {
		return models.BenchmarkResult{}, err
	}

	var parsed engineBenchmarkResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return models.BenchmarkResult{}, fmt.Errorf("%w: ベンチマーク応答の解析に失敗: %v", azure.ErrMalformedResponse, err)
	}
	if !validStatuses[parsed.PriceStatus] || !validStatuses[parsed.LeadTimeStatus] {
		return models.BenchmarkResult{}, fmt.Errorf("%w: 不正なステータス (price=%q, lead_time=%q)",
			azure.ErrMalformedResponse, parsed.PriceStatus, parsed.LeadTimeStatus)
	}

	return models.BenchmarkResult{
		PartNumber:       rate.PartNumber,
		Vendor:           rate.Vendor,
		Country:          rate.Country,
		ProposedPrice:    rate.ProposedPrice,
		ProposedLeadTime: rate.ProposedLeadTime,
		PriceStatus:      parsed.PriceStatus,
		LeadTimeStatus:   parsed.LeadTimeStatus,
		ConfidenceMatch:  parsed.ConfidenceMatch,
		Comment:          parsed.Comment,
	}, nil
}

// CreateEmbedding テキストのベクトル表現を生成（レポートアーカイブ用）
func (aos *AzureOpenAIService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return aos.client.CreateEmbedding(ctx, text)
}
