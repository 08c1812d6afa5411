package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"procure-forecast-api/pkg/models"
)

// stubEngine はエンジン呼び出しを記録するテスト用実装
type stubEngine struct {
	forecastCalls  []models.CombinationKey
	histories      [][]models.HistoricalRecord
	forecastErr    error
	baselines      []models.BaselineContext
	benchmarkCalls []models.NegotiatedRate
}

func (e *stubEngine) GenerateForecast(_ context.Context, key models.CombinationKey, history []models.HistoricalRecord, confidence int, model string) (models.ForecastResult, error) {
	e.forecastCalls = append(e.forecastCalls, key)
	e.histories = append(e.histories, history)
	if e.forecastErr != nil {
		return models.ForecastResult{}, e.forecastErr
	}
	return models.ForecastResult{
		PartNumber: key.PartNumber,
		Vendor:     key.Vendor,
		Country:    key.Country,
		Forecast:   []models.ForecastPoint{{Date: "2025-07-01", PredictedPrice: 10, ConfidenceIntervalUpper: 12, ConfidenceIntervalLower: 8}},
		Summary:    models.ForecastSummary{AvgPredictedPrice: 10, AvgPredictedLeadTime: 20, PriceTrend: "stable", LeadTimeTrend: "up"},
	}, nil
}

func (e *stubEngine) EvaluateBenchmark(_ context.Context, rate models.NegotiatedRate, baseline models.BaselineContext, confidence int) (models.BenchmarkResult, error) {
	e.benchmarkCalls = append(e.benchmarkCalls, rate)
	e.baselines = append(e.baselines, baseline)
	return models.BenchmarkResult{
		PartNumber: rate.PartNumber, Vendor: rate.Vendor, Country: rate.Country,
		ProposedPrice: rate.ProposedPrice, ProposedLeadTime: rate.ProposedLeadTime,
		PriceStatus: "favorable", LeadTimeStatus: "warning", ConfidenceMatch: true,
	}, nil
}

func keyRecords(key models.CombinationKey, dates ...string) []models.HistoricalRecord {
	records := make([]models.HistoricalRecord, len(dates))
	for i, d := range dates {
		records[i] = models.HistoricalRecord{
			ID: fmt.Sprintf("%s-%d", key.PartNumber, i), PartNumber: key.PartNumber,
			Vendor: key.Vendor, Country: key.Country, USDPrice: 10, Date: d,
		}
	}
	return records
}

func newForecastFixture(batchSize int) (*ForecastService, *stubEngine, *DatasetService) {
	engine := &stubEngine{}
	dataset := NewDatasetService()
	svc := NewForecastService(engine, dataset, NewCombinationService(), "gpt-4o-mini", batchSize)
	return svc, engine, dataset
}

func TestRunForecastInsufficientData(t *testing.T) {
	svc, engine, dataset := newForecastFixture(5)
	key := models.CombinationKey{PartNumber: "A", Vendor: "V1", Country: "US"}
	dataset.ReplaceHistorical(keyRecords(key, "2025-01-01", "2025-02-01"), 0)

	_, err := svc.RunForecast(context.Background(), key, 95)

	assert.True(t, errors.Is(err, ErrInsufficientData))
	// エンジンは呼ばれないこと（fail fast）
	assert.Empty(t, engine.forecastCalls)
}

func TestRunForecastSortsHistoryChronologically(t *testing.T) {
	svc, engine, dataset := newForecastFixture(5)
	key := models.CombinationKey{PartNumber: "A", Vendor: "V1", Country: "US"}
	dataset.ReplaceHistorical(keyRecords(key, "2025-03-01", "2025-01-01", "2025-02-01"), 0)

	result, err := svc.RunForecast(context.Background(), key, 0)

	assert.NoError(t, err)
	assert.Equal(t, "2025-01-01", engine.histories[0][0].Date)
	assert.Equal(t, "2025-03-01", engine.histories[0][2].Date)

	// 結果がデータセットにupsertされること
	stored, ok := dataset.FindForecast(key)
	assert.True(t, ok)
	assert.Equal(t, result, stored)
}

func TestRunForecastInvalidConfidence(t *testing.T) {
	svc, _, dataset := newForecastFixture(5)
	key := models.CombinationKey{PartNumber: "A", Vendor: "V1", Country: "US"}
	dataset.ReplaceHistorical(keyRecords(key, "2025-01-01", "2025-02-01", "2025-03-01"), 0)

	_, err := svc.RunForecast(context.Background(), key, 80)
	assert.True(t, errors.Is(err, ErrInvalidConfidence))
}

func TestRunBulkForecast(t *testing.T) {
	svc, engine, dataset := newForecastFixture(2)

	keyA := models.CombinationKey{PartNumber: "A", Vendor: "V1", Country: "US"}
	keyB := models.CombinationKey{PartNumber: "B", Vendor: "V1", Country: "US"}
	keyC := models.CombinationKey{PartNumber: "C", Vendor: "V1", Country: "US"}

	records := keyRecords(keyA, "2025-01-01", "2025-02-01", "2025-03-01")
	records = append(records, keyRecords(keyB, "2025-01-01")...) // 3件未満
	records = append(records, keyRecords(keyC, "2025-01-01", "2025-02-01", "2025-03-01")...)
	dataset.ReplaceHistorical(records, 0)

	report, err := svc.RunBulkForecast(context.Background(), 95)

	assert.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Len(t, report.Failures, 1)
	assert.Equal(t, keyB, report.Failures[0].Key)

	// バッチサイズ2なので進捗は2回記録される
	assert.Equal(t, []models.BulkProgress{{Processed: 2, Total: 3}, {Processed: 3, Total: 3}}, report.Progress)

	// 履歴不足のキーはエンジンに渡らない
	assert.Equal(t, []models.CombinationKey{keyA, keyC}, engine.forecastCalls)
	assert.Len(t, dataset.Forecasts(), 2)
}

func TestRunBulkForecastTrimsHistory(t *testing.T) {
	svc, engine, dataset := newForecastFixture(5)

	key := models.CombinationKey{PartNumber: "A", Vendor: "V1", Country: "US"}
	dates := make([]string, 30)
	for i := range dates {
		dates[i] = fmt.Sprintf("2023-%02d-01", i%12+1)
	}
	dataset.ReplaceHistorical(keyRecords(key, dates...), 0)

	_, err := svc.RunBulkForecast(context.Background(), 95)

	assert.NoError(t, err)
	assert.Len(t, engine.histories[0], maxHistoryPoints)
}

func TestRunBulkForecastNoData(t *testing.T) {
	svc, _, _ := newForecastFixture(5)

	_, err := svc.RunBulkForecast(context.Background(), 95)
	assert.True(t, errors.Is(err, ErrNoHistoricalData))
}

func TestRunBenchmark(t *testing.T) {
	svc, engine, dataset := newForecastFixture(5)

	dataset.UpsertForecast(models.ForecastResult{
		PartNumber: "A", Vendor: "V1", Country: "US",
		Forecast: []models.ForecastPoint{
			{PredictedPrice: 10, ConfidenceIntervalUpper: 12, ConfidenceIntervalLower: 8},
			{PredictedPrice: 20},
		},
		Summary: models.ForecastSummary{AvgPredictedLeadTime: 30, LeadTimeTrend: "up"},
	})
	dataset.AppendNegotiations([]models.NegotiatedRate{
		{PartNumber: "A", Vendor: "V1", Country: "US", ProposedPrice: 14, ProposedLeadTime: 28},
	})

	results, err := svc.RunBenchmark(context.Background(), 95)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "favorable", results[0].PriceStatus)

	// ベースラインの導出値を検証
	baseline := engine.baselines[0]
	assert.Equal(t, 15.0, baseline.MeanPrice)
	assert.Equal(t, 12.0, baseline.FirstPointUpper)
	assert.Equal(t, 8.0, baseline.FirstPointLower)
	assert.Equal(t, 24.0, baseline.LeadTimeLowerBound)
	assert.Equal(t, 36.0, baseline.LeadTimeUpperBound)
	assert.Equal(t, "up", baseline.LeadTimeTrend)

	// 結果がデータセットに保存されること
	assert.Len(t, dataset.Benchmarks(), 1)
}

func TestRunBenchmarkMissingForecastIsAnomaly(t *testing.T) {
	svc, engine, dataset := newForecastFixture(5)

	dataset.UpsertForecast(models.ForecastResult{PartNumber: "A", Vendor: "V1", Country: "US"})
	dataset.AppendNegotiations([]models.NegotiatedRate{
		{PartNumber: "X", Vendor: "V9", Country: "JP", ProposedPrice: 5},
	})

	results, err := svc.RunBenchmark(context.Background(), 95)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "anomaly", results[0].PriceStatus)
	assert.Equal(t, "anomaly", results[0].LeadTimeStatus)
	// 予測のないレートはエンジンに渡らない
	assert.Empty(t, engine.benchmarkCalls)
}

func TestRunBenchmarkPreconditions(t *testing.T) {
	svc, _, dataset := newForecastFixture(5)

	_, err := svc.RunBenchmark(context.Background(), 95)
	assert.True(t, errors.Is(err, ErrNoNegotiations))

	dataset.AppendNegotiations([]models.NegotiatedRate{{PartNumber: "A"}})
	_, err = svc.RunBenchmark(context.Background(), 95)
	assert.True(t, errors.Is(err, ErrNoForecasts))
}
