package services

import (
	"sort"

	"procure-forecast-api/pkg/models"
)

// OutlierService removes price outliers from historical records using the
// interquartile range method. Quartiles are taken as population indices
// on the sorted prices (floor(n/4) and floor(3n/4)), not interpolated.
type OutlierService struct{}

// NewOutlierService creates a new OutlierService.
func NewOutlierService() *OutlierService {
	return &OutlierService{}
}

// Cleanse returns the records whose price falls inside the closed band
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR], preserving input order, together with
// the number of removed records. Fewer than 4 records are returned
// unchanged because quartiles are not meaningful on such small samples.
func (s *OutlierService) Cleanse(records []models.HistoricalRecord) ([]models.HistoricalRecord, int) {
	if len(records) < 4 {
		return records, 0
	}

	prices := make([]float64, len(records))
	for i, r := range records {
		prices[i] = r.USDPrice
	}
	sort.Float64s(prices)

	q1 := prices[len(prices)/4]
	q3 := prices[3*len(prices)/4]
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	cleansed := make([]models.HistoricalRecord, 0, len(records))
	for _, r := range records {
		if r.USDPrice >= lower && r.USDPrice <= upper {
			cleansed = append(cleansed, r)
		}
	}
	return cleansed, len(records) - len(cleansed)
}
