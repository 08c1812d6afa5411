package services

import (
	"sync"

	"procure-forecast-api/pkg/models"
)

// DatasetService は作業データセット（履歴・交渉レート・予測・ベンチマーク）を
// メモリ上で一元管理するサービス。コア処理は純粋関数として実装されているため、
// 共有状態の読み書きはすべてこのサービスを経由する。
type DatasetService struct {
	mu              sync.RWMutex
	historical      []models.HistoricalRecord
	removedOutliers int
	negotiations    []models.NegotiatedRate
	forecasts       []models.ForecastResult
	forecastIndex   map[models.CombinationKey]int
	benchmarks      []models.BenchmarkResult
}

// NewDatasetService は空のデータセットを作成
func NewDatasetService() *DatasetService {
	return &DatasetService{
		forecastIndex: make(map[models.CombinationKey]int),
	}
}

// ReplaceHistorical は履歴データを置き換える（アップロードごとに全置換）
func (s *DatasetService) ReplaceHistorical(records []models.HistoricalRecord, removedOutliers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historical = records
	s.removedOutliers = removedOutliers
}

// AppendNegotiations は交渉レートを追記する（複数ファイルの順次アップロードに対応）
func (s *DatasetService) AppendNegotiations(rates []models.NegotiatedRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.negotiations = append(s.negotiations, rates...)
}

// UpsertForecast は (part, vendor, country) ごとに最大1件の予測を保持する。
// 既存キーは新しい結果で上書きされ、新規キーは末尾に追加される。
func (s *DatasetService) UpsertForecast(result models.ForecastResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.CombinationKey{PartNumber: result.PartNumber, Vendor: result.Vendor, Country: result.Country}
	if i, ok := s.forecastIndex[key]; ok {
		s.forecasts[i] = result
		return
	}
	s.forecastIndex[key] = len(s.forecasts)
	s.forecasts = append(s.forecasts, result)
}

// SetBenchmarks はベンチマーク結果を置き換える（実行ごとに全置換）
func (s *DatasetService) SetBenchmarks(results []models.BenchmarkResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = results
}

// Reset は全データを破棄して初期状態に戻す
func (s *DatasetService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historical = nil
	s.removedOutliers = 0
	s.negotiations = nil
	s.forecasts = nil
	s.forecastIndex = make(map[models.CombinationKey]int)
	s.benchmarks = nil
}

// Historical は履歴データのスナップショットを返す
func (s *DatasetService) Historical() []models.HistoricalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.HistoricalRecord, len(s.historical))
	copy(out, s.historical)
	return out
}

// HistoricalForKey は指定キーの履歴データのみを入力順で返す
func (s *DatasetService) HistoricalForKey(key models.CombinationKey) []models.HistoricalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.HistoricalRecord, 0)
	for _, r := range s.historical {
		if r.PartNumber == key.PartNumber && r.Vendor == key.Vendor && r.Country == key.Country {
			out = append(out, r)
		}
	}
	return out
}

// Negotiations は交渉レートのスナップショットを返す
func (s *DatasetService) Negotiations() []models.NegotiatedRate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.NegotiatedRate, len(s.negotiations))
	copy(out, s.negotiations)
	return out
}

// Forecasts は予測結果のスナップショットを挿入順で返す
func (s *DatasetService) Forecasts() []models.ForecastResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ForecastResult, len(s.forecasts))
	copy(out, s.forecasts)
	return out
}

// FindForecast は指定キーの予測結果を返す
func (s *DatasetService) FindForecast(key models.CombinationKey) (models.ForecastResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.forecastIndex[key]; ok {
		return s.forecasts[i], true
	}
	return models.ForecastResult{}, false
}

// Benchmarks はベンチマーク結果のスナップショットを返す
func (s *DatasetService) Benchmarks() []models.BenchmarkResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BenchmarkResult, len(s.benchmarks))
	copy(out, s.benchmarks)
	return out
}

// Summary はデータセットの概況を返す
func (s *DatasetService) Summary() models.DatasetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[models.CombinationKey]bool)
	for _, r := range s.historical {
		seen[models.CombinationKey{PartNumber: r.PartNumber, Vendor: r.Vendor, Country: r.Country}] = true
	}

	return models.DatasetSummary{
		HistoricalCount:  len(s.historical),
		RemovedOutliers:  s.removedOutliers,
		NegotiationCount: len(s.negotiations),
		ForecastCount:    len(s.forecasts),
		BenchmarkCount:   len(s.benchmarks),
		CombinationCount: len(seen),
	}
}
