package services

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"procure-forecast-api/pkg/models"
)

var (
	samplePartNumbers = []string{
		"PN-1001", "PN-1002", "PN-1003", "PN-1004",
		"PN-2001", "PN-2002", "PN-3001", "PN-3002",
	}
	sampleVendors = []string{
		"Acme Industrial", "Nippon Parts", "Euro Components",
		"Pacific Supply", "Delta Manufacturing", "Orion Metals",
	}
	sampleCountries = []string{"USA", "Japan", "Germany", "China", "Mexico", "Vietnam"}
)

// SampleDataService generates synthetic historical records for demos.
// Prices carry a 12-month sinusoidal seasonal term, a linear inflation
// drift, bounded noise, and ~4% deliberately injected 2.5x outliers so
// the cleansing pass has ground truth to find. The random source and
// clock are injectable for reproducible tests.
type SampleDataService struct {
	rng *rand.Rand
	now func() time.Time
}

// NewSampleDataService creates a generator seeded from the wall clock.
func NewSampleDataService() *SampleDataService {
	return NewSampleDataServiceWithSource(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewSampleDataServiceWithSource creates a generator with a
// caller-supplied random source and clock, so the same seed always
// yields the same records.
func NewSampleDataServiceWithSource(rng *rand.Rand, now func() time.Time) *SampleDataService {
	return &SampleDataService{rng: rng, now: now}
}

// Generate produces approximately count records. Each part is assigned
// 1-2 vendors (random picks may repeat and collapse to one), each
// (part, vendor) pair gets one country and base price/lead time, and
// monthly records walk backward from the current month. The result is
// truncated to count.
func (s *SampleDataService) Generate(count int) []models.HistoricalRecord {
	if count <= 0 {
		return []models.HistoricalRecord{}
	}

	type combo struct {
		part, vendor string
	}
	combos := make([]combo, 0, len(samplePartNumbers)*2)
	for _, part := range samplePartNumbers {
		// Keep vendors in pick order; map iteration order would make
		// the output differ between runs with the same seed.
		seen := make(map[string]bool)
		vendorCount := 1 + s.rng.Intn(2)
		for i := 0; i < vendorCount; i++ {
			vendor := sampleVendors[s.rng.Intn(len(sampleVendors))]
			if seen[vendor] {
				continue
			}
			seen[vendor] = true
			combos = append(combos, combo{part: part, vendor: vendor})
		}
	}

	months := count/len(combos) + 1
	monthStart := time.Date(s.now().Year(), s.now().Month(), 1, 0, 0, 0, 0, time.UTC)

	records := make([]models.HistoricalRecord, 0, len(combos)*months)
	for _, cb := range combos {
		country := sampleCountries[s.rng.Intn(len(sampleCountries))]
		basePrice := 5 + s.rng.Float64()*195
		baseLead := 7 + s.rng.Intn(40)

		for m := 0; m < months; m++ {
			seasonal := basePrice * 0.15 * math.Sin(2*math.Pi*float64(m)/12)
			inflation := basePrice * 0.004 * float64(m) // older months are cheaper
			noise := basePrice * (s.rng.Float64()*0.1 - 0.05)
			price := basePrice + seasonal - inflation + noise

			isOutlier := false
			if s.rng.Float64() < 0.04 {
				price *= 2.5
				isOutlier = true
			}
			if price < 0.01 {
				price = 0.01
			}

			lead := baseLead + s.rng.Intn(7) - 3
			if lead < 1 {
				lead = 1
			}

			records = append(records, models.HistoricalRecord{
				ID:           uuid.New().String(),
				PartNumber:   cb.part,
				Vendor:       cb.vendor,
				Country:      country,
				USDPrice:     math.Round(price*100) / 100,
				Quantity:     50 + s.rng.Intn(450),
				LeadTimeDays: lead,
				Date:         monthStart.AddDate(0, -m, 0).Format("2006-01-02"),
				IsOutlier:    isOutlier,
			})
		}
	}

	if len(records) > count {
		records = records[:count]
	}
	return records
}

// GenerateCSV renders count synthetic records through the codec.
func (s *SampleDataService) GenerateCSV(codec *CodecService, count int) string {
	return codec.GenerateHistoricalCSV(s.Generate(count))
}
