package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"procure-forecast-api/pkg/models"
)

// maxParseWarnings caps the number of row-level warnings reported per
// decode so a badly broken file does not produce a megabyte of noise.
const maxParseWarnings = 10

// ForecastRow is one decoded forecast CSV line before grouping.
type ForecastRow struct {
	Key   models.CombinationKey
	Point models.ForecastPoint
}

// CodecService converts between comma-delimited tabular text and the
// three record collections (historical, negotiation, forecast).
//
// Format limitation: rows are split on raw commas with no CSV-grade
// escaping. Fields containing embedded commas or escaped quotes are not
// handled correctly. This matches the established file format and is
// kept for compatibility with previously exported files.
type CodecService struct {
	now func() time.Time // injected for deterministic date defaults in tests
}

// NewCodecService creates a new CodecService using the wall clock.
func NewCodecService() *CodecService {
	return &CodecService{now: time.Now}
}

// splitLines splits the input on newlines, dropping carriage returns.
func splitLines(data string) []string {
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

// splitFields splits one data row on commas, trimming whitespace and
// stripping one layer of surrounding double quotes per field.
func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if len(f) >= 2 && strings.HasPrefix(f, `"`) && strings.HasSuffix(f, `"`) {
			f = f[1 : len(f)-1]
		}
		fields[i] = f
	}
	return fields
}

// findColumn returns the index of the first header matching any of the
// candidate aliases, or -1. Headers must already be normalized.
func findColumn(headers []string, candidates ...string) int {
	for _, c := range candidates {
		for i, h := range headers {
			if h == c {
				return i
			}
		}
	}
	return -1
}

func fieldAt(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

// parseFloatLenient parses raw as a float, defaulting to 0 on failure.
// Failures on non-empty input are recorded as warnings (zero-fill is a
// deliberate tolerant-decode policy, but it should not be silent).
func parseFloatLenient(raw, field string, lineNo int, warnings *[]string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if len(*warnings) < maxParseWarnings {
			*warnings = append(*warnings, fmt.Sprintf("line %d: %s %q is not numeric, using 0", lineNo, field, raw))
		}
		return 0
	}
	return v
}

// parseIntLenient parses raw as an integer through the float path, so
// fractional input is accepted. Truncation loses data and is warned
// about like any other imperfect parse.
func parseIntLenient(raw, field string, lineNo int, warnings *[]string) int {
	v := parseFloatLenient(raw, field, lineNo, warnings)
	n := int(v)
	if v != float64(n) && len(*warnings) < maxParseWarnings {
		*warnings = append(*warnings, fmt.Sprintf("line %d: %s %q truncated to %d", lineNo, field, raw, n))
	}
	return n
}

// ParseHistoricalCSV decodes historical procurement records.
// Header aliases are matched case-insensitively with parentheses
// stripped, so "Lead Time (Days)" and "lead time days" are equivalent.
// A missing date defaults to the current date at parse time.
func (c *CodecService) ParseHistoricalCSV(data string) ([]models.HistoricalRecord, []string) {
	lines := splitLines(data)
	if len(lines) < 2 {
		return []models.HistoricalRecord{}, nil
	}

	headers := splitFields(lines[0])
	for i, h := range headers {
		h = strings.ToLower(h)
		h = strings.ReplaceAll(h, "(", "")
		h = strings.ReplaceAll(h, ")", "")
		headers[i] = strings.TrimSpace(strings.Join(strings.Fields(h), " "))
	}

	partIdx := findColumn(headers, "part number", "partnumber", "part", "sku", "part no")
	countryIdx := findColumn(headers, "country", "country code", "region")
	priceIdx := findColumn(headers, "usd pricing", "usd price", "price", "unit price", "cost")
	qtyIdx := findColumn(headers, "quantity", "qty", "order quantity")
	leadIdx := findColumn(headers, "lead time days", "lead time", "leadtime")
	vendorIdx := findColumn(headers, "vendor", "supplier", "vendor name", "supplier name")
	dateIdx := findColumn(headers, "date", "order date", "purchase date")

	var warnings []string
	records := make([]models.HistoricalRecord, 0, len(lines)-1)
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 2
		fields := splitFields(line)

		date := fieldAt(fields, dateIdx)
		if date == "" {
			date = c.now().Format("2006-01-02")
		}

		records = append(records, models.HistoricalRecord{
			ID:           uuid.New().String(),
			PartNumber:   fieldAt(fields, partIdx),
			Country:      fieldAt(fields, countryIdx),
			USDPrice:     parseFloatLenient(fieldAt(fields, priceIdx), "usd price", lineNo, &warnings),
			Quantity:     parseIntLenient(fieldAt(fields, qtyIdx), "quantity", lineNo, &warnings),
			LeadTimeDays: parseIntLenient(fieldAt(fields, leadIdx), "lead time", lineNo, &warnings),
			Vendor:       fieldAt(fields, vendorIdx),
			Date:         date,
		})
	}
	return records, warnings
}

// ParseNegotiationCSV decodes negotiated-rate proposals.
func (c *CodecService) ParseNegotiationCSV(data string) ([]models.NegotiatedRate, []string) {
	lines := splitLines(data)
	if len(lines) < 2 {
		return []models.NegotiatedRate{}, nil
	}

	headers := splitFields(lines[0])
	for i, h := range headers {
		headers[i] = strings.ToLower(h)
	}

	partIdx := findColumn(headers, "part number", "partnumber", "part", "sku")
	vendorIdx := findColumn(headers, "vendor", "supplier", "vendor name")
	countryIdx := findColumn(headers, "country", "region")
	priceIdx := findColumn(headers, "proposed price", "price", "negotiated price")
	leadIdx := findColumn(headers, "proposed lead time", "lead time", "proposed lead time days")

	var warnings []string
	rates := make([]models.NegotiatedRate, 0, len(lines)-1)
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 2
		fields := splitFields(line)

		rates = append(rates, models.NegotiatedRate{
			PartNumber:       fieldAt(fields, partIdx),
			Vendor:           fieldAt(fields, vendorIdx),
			Country:          fieldAt(fields, countryIdx),
			ProposedPrice:    parseFloatLenient(fieldAt(fields, priceIdx), "proposed price", lineNo, &warnings),
			ProposedLeadTime: parseIntLenient(fieldAt(fields, leadIdx), "proposed lead time", lineNo, &warnings),
		})
	}
	return rates, warnings
}

// ParseForecastCSV decodes flat forecast rows. Grouping into
// ForecastResult values is a separate step (CombinationService).
func (c *CodecService) ParseForecastCSV(data string) ([]ForecastRow, []string) {
	lines := splitLines(data)
	if len(lines) < 2 {
		return []ForecastRow{}, nil
	}

	headers := splitFields(lines[0])
	for i, h := range headers {
		headers[i] = strings.ToLower(h)
	}

	partIdx := findColumn(headers, "part number", "partnumber", "part", "sku")
	vendorIdx := findColumn(headers, "vendor", "supplier")
	countryIdx := findColumn(headers, "country", "region")
	dateIdx := findColumn(headers, "date")
	priceIdx := findColumn(headers, "predicted price", "price")
	leadIdx := findColumn(headers, "predicted lead time", "lead time")
	upperIdx := findColumn(headers, "confidence upper", "upper", "confidence interval upper")
	lowerIdx := findColumn(headers, "confidence lower", "lower", "confidence interval lower")

	var warnings []string
	rows := make([]ForecastRow, 0, len(lines)-1)
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 2
		fields := splitFields(line)

		rows = append(rows, ForecastRow{
			Key: models.CombinationKey{
				PartNumber: fieldAt(fields, partIdx),
				Vendor:     fieldAt(fields, vendorIdx),
				Country:    fieldAt(fields, countryIdx),
			},
			Point: models.ForecastPoint{
				Date:                    fieldAt(fields, dateIdx),
				PredictedPrice:          parseFloatLenient(fieldAt(fields, priceIdx), "predicted price", lineNo, &warnings),
				PredictedLeadTime:       parseFloatLenient(fieldAt(fields, leadIdx), "predicted lead time", lineNo, &warnings),
				ConfidenceIntervalUpper: parseFloatLenient(fieldAt(fields, upperIdx), "confidence upper", lineNo, &warnings),
				ConfidenceIntervalLower: parseFloatLenient(fieldAt(fields, lowerIdx), "confidence lower", lineNo, &warnings),
			},
		})
	}
	return rows, warnings
}

// formatFloat renders a number with the shortest exact representation
// so encoded values round-trip through the decoder unchanged.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quote(s string) string {
	return `"` + s + `"`
}

// GenerateHistoricalCSV encodes historical records. String fields are
// double-quoted, numeric fields are not, lines are \n-joined.
func (c *CodecService) GenerateHistoricalCSV(records []models.HistoricalRecord) string {
	var b strings.Builder
	b.WriteString("Part Number,Country,USD Pricing,Quantity,Lead Time (Days),Vendor,Date")
	for _, r := range records {
		b.WriteString("\n")
		b.WriteString(strings.Join([]string{
			quote(r.PartNumber),
			quote(r.Country),
			formatFloat(r.USDPrice),
			strconv.Itoa(r.Quantity),
			strconv.Itoa(r.LeadTimeDays),
			quote(r.Vendor),
			quote(r.Date),
		}, ","))
	}
	return b.String()
}

// GenerateNegotiationSampleCSV returns an illustrative negotiation
// upload with three fixed rows.
func (c *CodecService) GenerateNegotiationSampleCSV() string {
	return strings.Join([]string{
		"Part Number,Vendor,Country,Proposed Price,Proposed Lead Time",
		`"PN-1001","Acme Industrial","USA",24.5,21`,
		`"PN-1002","Nippon Parts","Japan",102.75,35`,
		`"PN-1003","Euro Components","Germany",8.9,14`,
	}, "\n")
}

// GenerateForecastTemplateCSV returns an illustrative forecast baseline
// upload with two fixed rows, one date each.
func (c *CodecService) GenerateForecastTemplateCSV() string {
	return strings.Join([]string{
		"Part Number,Vendor,Country,Date,Predicted Price,Predicted Lead Time,Confidence Upper,Confidence Lower",
		`"PN-1001","Acme Industrial","USA","2025-01-01",25.1,22,27.3,23.2`,
		`"PN-1002","Nippon Parts","Japan","2025-01-01",101.2,34,108.8,95.4`,
	}, "\n")
}

// GenerateForecastCSV encodes forecast results, one line per point.
func (c *CodecService) GenerateForecastCSV(results []models.ForecastResult) string {
	var b strings.Builder
	b.WriteString("Part Number,Vendor,Country,Date,Predicted Price,Predicted Lead Time,Confidence Upper,Confidence Lower")
	for _, r := range results {
		for _, p := range r.Forecast {
			b.WriteString("\n")
			b.WriteString(strings.Join([]string{
				quote(r.PartNumber),
				quote(r.Vendor),
				quote(r.Country),
				quote(p.Date),
				formatFloat(p.PredictedPrice),
				formatFloat(p.PredictedLeadTime),
				formatFloat(p.ConfidenceIntervalUpper),
				formatFloat(p.ConfidenceIntervalLower),
			}, ","))
		}
	}
	return b.String()
}

// GenerateBenchmarkCSV encodes benchmark results.
func (c *CodecService) GenerateBenchmarkCSV(results []models.BenchmarkResult) string {
	var b strings.Builder
	b.WriteString("Part Number,Vendor,Country,Proposed Price,Proposed Lead Time,Price Status,Lead Time Status,Confidence Match,Comment")
	for _, r := range results {
		b.WriteString("\n")
		b.WriteString(strings.Join([]string{
			quote(r.PartNumber),
			quote(r.Vendor),
			quote(r.Country),
			formatFloat(r.ProposedPrice),
			strconv.Itoa(r.ProposedLeadTime),
			quote(r.PriceStatus),
			quote(r.LeadTimeStatus),
			strconv.FormatBool(r.ConfidenceMatch),
			quote(r.Comment),
		}, ","))
	}
	return b.String()
}
