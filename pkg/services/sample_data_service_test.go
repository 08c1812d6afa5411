package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func seededSampleService(seed int64) *SampleDataService {
	return NewSampleDataServiceWithSource(
		rand.New(rand.NewSource(seed)),
		func() time.Time {
			return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
		},
	)
}

func TestGenerateProducesRequestedCount(t *testing.T) {
	s := seededSampleService(1)

	records := s.Generate(100)
	assert.Len(t, records, 100)
}

func TestGenerateFieldsAreWellFormed(t *testing.T) {
	s := seededSampleService(2)

	records := s.Generate(200)
	for _, r := range records {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.PartNumber)
		assert.NotEmpty(t, r.Vendor)
		assert.NotEmpty(t, r.Country)
		assert.Greater(t, r.USDPrice, 0.0)
		assert.GreaterOrEqual(t, r.Quantity, 50)
		assert.GreaterOrEqual(t, r.LeadTimeDays, 1)

		_, err := time.Parse("2006-01-02", r.Date)
		assert.NoError(t, err)
	}
}

func TestGenerateVendorsPerPart(t *testing.T) {
	s := seededSampleService(3)

	records := s.Generate(300)
	vendorsByPart := make(map[string]map[string]bool)
	for _, r := range records {
		if vendorsByPart[r.PartNumber] == nil {
			vendorsByPart[r.PartNumber] = make(map[string]bool)
		}
		vendorsByPart[r.PartNumber][r.Vendor] = true
	}
	for part, vendors := range vendorsByPart {
		assert.LessOrEqual(t, len(vendors), 2, "part %s has too many vendors", part)
	}
}

func TestGenerateOneCountryPerCombination(t *testing.T) {
	s := seededSampleService(4)

	records := s.Generate(300)
	countryByCombo := make(map[string]string)
	for _, r := range records {
		combo := r.PartNumber + "|" + r.Vendor
		if prev, ok := countryByCombo[combo]; ok {
			assert.Equal(t, prev, r.Country)
		} else {
			countryByCombo[combo] = r.Country
		}
	}
}

func TestGenerateInjectsOutliers(t *testing.T) {
	s := seededSampleService(5)

	records := s.Generate(1000)
	outliers := 0
	for _, r := range records {
		if r.IsOutlier {
			outliers++
		}
	}
	// ~4% injection rate; allow generous slack around the expectation.
	assert.Greater(t, outliers, 5)
	assert.Less(t, outliers, 120)
}

func TestGenerateDatesWalkBackwardMonthly(t *testing.T) {
	s := seededSampleService(6)

	records := s.Generate(50)
	assert.Equal(t, "2025-06-01", records[0].Date)

	// Within one (part, vendor) run, consecutive records step back a month.
	first, _ := time.Parse("2006-01-02", records[0].Date)
	second, _ := time.Parse("2006-01-02", records[1].Date)
	if records[0].PartNumber == records[1].PartNumber && records[0].Vendor == records[1].Vendor {
		assert.Equal(t, first.AddDate(0, -1, 0), second)
	}
}

func TestGenerateIsDeterministicForSameSeed(t *testing.T) {
	first := seededSampleService(42).Generate(200)
	second := seededSampleService(42).Generate(200)

	assert.Len(t, second, len(first))
	for i := range first {
		// IDs are fresh UUIDs each run; everything else must match.
		first[i].ID = ""
		second[i].ID = ""
		assert.Equal(t, first[i], second[i], "record %d differs between identically seeded runs", i)
	}
}

func TestGenerateZeroCount(t *testing.T) {
	s := seededSampleService(7)

	assert.Empty(t, s.Generate(0))
}
