package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"procure-forecast-api/pkg/models"
)

// maxHistoryPoints は一括予測でエンジンに渡す履歴の上限（直近の月次データのみ）
const maxHistoryPoints = 24

// 予測・ベンチマーク実行の前提条件エラー。呼び出し側は errors.Is で判定する。
var (
	ErrInsufficientData  = errors.New("forecast: at least 3 historical points are required")
	ErrNoHistoricalData  = errors.New("forecast: no historical data loaded")
	ErrNoNegotiations    = errors.New("benchmark: no negotiated rates loaded")
	ErrNoForecasts       = errors.New("benchmark: no forecast results available")
	ErrInvalidConfidence = errors.New("confidence level must be 90, 95 or 99")
)

// ForecastEngine は外部推論エンジンの境界。
// 実装は構造化された入力を受け取り、構造化された結果か分類済みエラーを返す。
type ForecastEngine interface {
	GenerateForecast(ctx context.Context, key models.CombinationKey, history []models.HistoricalRecord, confidence int, model string) (models.ForecastResult, error)
	EvaluateBenchmark(ctx context.Context, rate models.NegotiatedRate, baseline models.BaselineContext, confidence int) (models.BenchmarkResult, error)
}

// ForecastService は予測・ベンチマークのオーケストレーションを担当する。
// データの取り出しと前提条件チェックはローカルで行い、推論はエンジンに委譲する。
type ForecastService struct {
	engine    ForecastEngine
	dataset   *DatasetService
	combos    *CombinationService
	model     string
	batchSize int
}

// NewForecastService 新しいForecastServiceを作成
func NewForecastService(engine ForecastEngine, dataset *DatasetService, combos *CombinationService, model string, batchSize int) *ForecastService {
	if batchSize < 1 {
		batchSize = 1
	}
	return &ForecastService{
		engine:    engine,
		dataset:   dataset,
		combos:    combos,
		model:     model,
		batchSize: batchSize,
	}
}

// normalizeConfidence は信頼水準を検証する（0はデフォルトの95として扱う）
func normalizeConfidence(confidence int) (int, error) {
	switch confidence {
	case 0:
		return 95, nil
	case 90, 95, 99:
		return confidence, nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidConfidence, confidence)
	}
}

// sortChronologically は履歴をISO日付の昇順に並べ替えた新しいスライスを返す
func sortChronologically(records []models.HistoricalRecord) []models.HistoricalRecord {
	sorted := make([]models.HistoricalRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}

// RunForecast は単一キーの予測を実行し、結果をデータセットにupsertする。
// 対象キーの履歴が3件未満の場合はエンジンを呼ばずに失敗する。
func (s *ForecastService) RunForecast(ctx context.Context, key models.CombinationKey, confidence int) (models.ForecastResult, error) {
	confidence, err := normalizeConfidence(confidence)
	if err != nil {
		return models.ForecastResult{}, err
	}

	history := s.dataset.HistoricalForKey(key)
	if len(history) < 3 {
		return models.ForecastResult{}, fmt.Errorf("%w: key (%s, %s, %s) has %d points",
			ErrInsufficientData, key.PartNumber, key.Vendor, key.Country, len(history))
	}

	result, err := s.engine.GenerateForecast(ctx, key, sortChronologically(history), confidence, s.model)
	if err != nil {
		return models.ForecastResult{}, err
	}

	s.dataset.UpsertForecast(result)
	log.Printf("✅ 予測完了: %s / %s / %s (%d points)", key.PartNumber, key.Vendor, key.Country, len(result.Forecast))
	return result, nil
}

// RunBulkForecast は全組み合わせの予測をバッチ単位で実行する。
// 各キーの履歴は直近 maxHistoryPoints 件に切り詰めてエンジンに渡し、
// バッチ処理ごとに進捗（処理済み組み合わせ数）を記録する。
func (s *ForecastService) RunBulkForecast(ctx context.Context, confidence int) (models.BulkForecastReport, error) {
	confidence, err := normalizeConfidence(confidence)
	if err != nil {
		return models.BulkForecastReport{}, err
	}

	historical := s.dataset.Historical()
	if len(historical) == 0 {
		return models.BulkForecastReport{}, ErrNoHistoricalData
	}

	keys := s.combos.Enumerate(historical)
	report := models.BulkForecastReport{Total: len(keys)}

	for start := 0; start < len(keys); start += s.batchSize {
		end := start + s.batchSize
		if end > len(keys) {
			end = len(keys)
		}

		for _, key := range keys[start:end] {
			history := sortChronologically(s.dataset.HistoricalForKey(key))
			if len(history) < 3 {
				report.Failures = append(report.Failures, models.BulkFailure{Key: key, Error: ErrInsufficientData.Error()})
				continue
			}
			if len(history) > maxHistoryPoints {
				history = history[len(history)-maxHistoryPoints:]
			}

			result, err := s.engine.GenerateForecast(ctx, key, history, confidence, s.model)
			if err != nil {
				log.Printf("⚠️ 予測失敗: %s / %s / %s: %v", key.PartNumber, key.Vendor, key.Country, err)
				report.Failures = append(report.Failures, models.BulkFailure{Key: key, Error: err.Error()})
				continue
			}
			s.dataset.UpsertForecast(result)
			report.Succeeded++
		}

		report.Progress = append(report.Progress, models.BulkProgress{Processed: end, Total: len(keys)})
	}

	log.Printf("✅ 一括予測完了: %d/%d 成功", report.Succeeded, report.Total)
	return report, nil
}

// buildBaseline は1キー分の予測からベンチマーク用ベースラインを組み立てる。
// 平均価格、先頭ポイントの信頼区間、平均リードタイム±20%の許容帯を含む。
func buildBaseline(forecast models.ForecastResult) models.BaselineContext {
	var priceSum float64
	for _, p := range forecast.Forecast {
		priceSum += p.PredictedPrice
	}
	meanPrice := 0.0
	if len(forecast.Forecast) > 0 {
		meanPrice = priceSum / float64(len(forecast.Forecast))
	}

	baseline := models.BaselineContext{
		PartNumber:    forecast.PartNumber,
		Vendor:        forecast.Vendor,
		Country:       forecast.Country,
		MeanPrice:     meanPrice,
		MeanLeadTime:  forecast.Summary.AvgPredictedLeadTime,
		LeadTimeTrend: forecast.Summary.LeadTimeTrend,
	}
	if len(forecast.Forecast) > 0 {
		baseline.FirstPointUpper = forecast.Forecast[0].ConfidenceIntervalUpper
		baseline.FirstPointLower = forecast.Forecast[0].ConfidenceIntervalLower
	}
	baseline.LeadTimeLowerBound = forecast.Summary.AvgPredictedLeadTime * 0.8
	baseline.LeadTimeUpperBound = forecast.Summary.AvgPredictedLeadTime * 1.2
	return baseline
}

// RunBenchmark は読み込み済みの交渉レート全件を予測と照合して評価する。
// 対応する予測が存在しないレートはエンジンを呼ばずに anomaly として記録する。
// 結果はデータセットのベンチマーク集合を置き換える。
func (s *ForecastService) RunBenchmark(ctx context.Context, confidence int) ([]models.BenchmarkResult, error) {
	confidence, err := normalizeConfidence(confidence)
	if err != nil {
		return nil, err
	}

	rates := s.dataset.Negotiations()
	if len(rates) == 0 {
		return nil, ErrNoNegotiations
	}
	if len(s.dataset.Forecasts()) == 0 {
		return nil, ErrNoForecasts
	}

	results := make([]models.BenchmarkResult, 0, len(rates))
	for _, rate := range rates {
		key := models.CombinationKey{PartNumber: rate.PartNumber, Vendor: rate.Vendor, Country: rate.Country}
		forecast, ok := s.dataset.FindForecast(key)
		if !ok {
			results = append(results, models.BenchmarkResult{
				PartNumber:       rate.PartNumber,
				Vendor:           rate.Vendor,
				Country:          rate.Country,
				ProposedPrice:    rate.ProposedPrice,
				ProposedLeadTime: rate.ProposedLeadTime,
				PriceStatus:      "anomaly",
				LeadTimeStatus:   "anomaly",
				Comment:          "対応する予測が存在しません",
			})
			continue
		}

		result, err := s.engine.EvaluateBenchmark(ctx, rate, buildBaseline(forecast), confidence)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	s.dataset.SetBenchmarks(results)
	log.Printf("✅ ベンチマーク完了: %d 件評価", len(results))
	return results, nil
}
