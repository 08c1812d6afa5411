package services

import (
	"procure-forecast-api/pkg/models"
)

// CombinationService enumerates the distinct (part, vendor, country)
// triples in a dataset and groups flat forecast rows by that key.
type CombinationService struct{}

// NewCombinationService creates a new CombinationService.
func NewCombinationService() *CombinationService {
	return &CombinationService{}
}

// Enumerate returns the distinct triples present in records. Ordering
// is nested first-seen: parts in first-seen order, then vendors within
// each part, then countries within each (part, vendor). Only
// combinations that actually occur are emitted, never the full
// cross-product.
func (s *CombinationService) Enumerate(records []models.HistoricalRecord) []models.CombinationKey {
	partOrder := make([]string, 0)
	vendorOrder := make(map[string][]string)
	countryOrder := make(map[[2]string][]string)
	seenPart := make(map[string]bool)
	seenVendor := make(map[[2]string]bool)
	seenKey := make(map[models.CombinationKey]bool)

	for _, r := range records {
		if !seenPart[r.PartNumber] {
			seenPart[r.PartNumber] = true
			partOrder = append(partOrder, r.PartNumber)
		}
		pv := [2]string{r.PartNumber, r.Vendor}
		if !seenVendor[pv] {
			seenVendor[pv] = true
			vendorOrder[r.PartNumber] = append(vendorOrder[r.PartNumber], r.Vendor)
		}
		key := models.CombinationKey{PartNumber: r.PartNumber, Vendor: r.Vendor, Country: r.Country}
		if !seenKey[key] {
			seenKey[key] = true
			countryOrder[pv] = append(countryOrder[pv], r.Country)
		}
	}

	keys := make([]models.CombinationKey, 0, len(seenKey))
	for _, part := range partOrder {
		for _, vendor := range vendorOrder[part] {
			for _, country := range countryOrder[[2]string{part, vendor}] {
				keys = append(keys, models.CombinationKey{PartNumber: part, Vendor: vendor, Country: country})
			}
		}
	}
	return keys
}

// GroupForecastRows groups flat forecast rows into one ForecastResult
// per triple. Groups appear in first-seen order and points are appended
// in input order without re-sorting by date.
//
// The price trend compares the first and last point as ordered in the
// input. The lead-time trend and optimized quantity are not derived on
// this path and keep their defaults ("stable" and 0); bulk engine
// responses supply those fields themselves.
func (s *CombinationService) GroupForecastRows(rows []ForecastRow) []models.ForecastResult {
	index := make(map[models.CombinationKey]int)
	results := make([]models.ForecastResult, 0)
	for _, row := range rows {
		i, ok := index[row.Key]
		if !ok {
			i = len(results)
			index[row.Key] = i
			results = append(results, models.ForecastResult{
				PartNumber: row.Key.PartNumber,
				Vendor:     row.Key.Vendor,
				Country:    row.Key.Country,
				Summary:    models.ForecastSummary{PriceTrend: "stable", LeadTimeTrend: "stable"},
			})
		}
		results[i].Forecast = append(results[i].Forecast, row.Point)
	}

	for i := range results {
		points := results[i].Forecast
		if len(points) == 0 {
			continue
		}
		var priceSum, leadSum float64
		for _, p := range points {
			priceSum += p.PredictedPrice
			leadSum += p.PredictedLeadTime
		}
		results[i].Summary.AvgPredictedPrice = priceSum / float64(len(points))
		results[i].Summary.AvgPredictedLeadTime = leadSum / float64(len(points))

		if len(points) > 1 {
			first := points[0].PredictedPrice
			last := points[len(points)-1].PredictedPrice
			switch {
			case last > first:
				results[i].Summary.PriceTrend = "up"
			case last < first:
				results[i].Summary.PriceTrend = "down"
			default:
				results[i].Summary.PriceTrend = "stable"
			}
		}
	}
	return results
}
