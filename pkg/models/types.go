package models

// HistoricalRecord represents a single historical procurement record.
// Records are created by upload parsing or synthetic generation and are
// never mutated afterwards; cleansing produces a new filtered slice.
type HistoricalRecord struct {
	ID           string  `json:"id"`
	PartNumber   string  `json:"part_number"`
	Vendor       string  `json:"vendor"`
	Country      string  `json:"country"`
	USDPrice     float64 `json:"usd_price"`
	Quantity     int     `json:"quantity"`
	LeadTimeDays int     `json:"lead_time_days"`
	Date         string  `json:"date"` // YYYY-MM-DD
	IsOutlier    bool    `json:"is_outlier,omitempty"`
}

// NegotiatedRate represents one externally negotiated rate proposal.
// The (part, vendor, country) triple is a grouping key, not a unique
// key: multiple proposals may exist per triple across uploaded files.
type NegotiatedRate struct {
	PartNumber       string  `json:"part_number"`
	Vendor           string  `json:"vendor"`
	Country          string  `json:"country"`
	ProposedPrice    float64 `json:"proposed_price"`
	ProposedLeadTime int     `json:"proposed_lead_time"` // days
}

// ForecastPoint represents a single predicted point in time.
type ForecastPoint struct {
	Date                    string  `json:"date"`
	PredictedPrice          float64 `json:"predicted_price"`
	PredictedLeadTime       float64 `json:"predicted_lead_time"`
	ConfidenceIntervalUpper float64 `json:"confidence_interval_upper"`
	ConfidenceIntervalLower float64 `json:"confidence_interval_lower"`
}

// ForecastSummary 予測結果のサマリー
type ForecastSummary struct {
	AvgPredictedPrice      float64 `json:"avg_predicted_price"`
	AvgPredictedLeadTime   float64 `json:"avg_predicted_lead_time"`
	PriceTrend             string  `json:"price_trend"`     // "up", "down", "stable"
	LeadTimeTrend          string  `json:"lead_time_trend"` // "up", "down", "stable"
	OptimizedOrderQuantity int     `json:"optimized_order_quantity"`
}

// ForecastResult represents the forecast for one (part, vendor, country)
// triple. At most one ForecastResult exists per triple in the
// authoritative store (upsert semantics on insert).
type ForecastResult struct {
	PartNumber string          `json:"part_number"`
	Vendor     string          `json:"vendor"`
	Country    string          `json:"country"`
	Forecast   []ForecastPoint `json:"forecast"`
	Summary    ForecastSummary `json:"summary"`
}

// BenchmarkResult はAIエンジンによる交渉レートの評価結果
type BenchmarkResult struct {
	PartNumber       string  `json:"part_number"`
	Vendor           string  `json:"vendor"`
	Country          string  `json:"country"`
	ProposedPrice    float64 `json:"proposed_price"`
	ProposedLeadTime int     `json:"proposed_lead_time"`
	PriceStatus      string  `json:"price_status"`     // "favorable", "warning", "critical", "anomaly"
	LeadTimeStatus   string  `json:"lead_time_status"` // 同上
	ConfidenceMatch  bool    `json:"confidence_match"`
	Comment          string  `json:"comment"`
}

// CombinationKey identifies one procurement line of business.
// Equality is exact string match, case-sensitive, no normalization.
type CombinationKey struct {
	PartNumber string `json:"part_number"`
	Vendor     string `json:"vendor"`
	Country    string `json:"country"`
}

// BaselineContext is the per-forecast reference data handed to the
// benchmarking engine alongside the negotiated rates.
type BaselineContext struct {
	PartNumber         string  `json:"part_number"`
	Vendor             string  `json:"vendor"`
	Country            string  `json:"country"`
	MeanPrice          float64 `json:"mean_price"`
	FirstPointUpper    float64 `json:"first_point_upper"`
	FirstPointLower    float64 `json:"first_point_lower"`
	MeanLeadTime       float64 `json:"mean_lead_time"`
	LeadTimeLowerBound float64 `json:"lead_time_lower_bound"`
	LeadTimeUpperBound float64 `json:"lead_time_upper_bound"`
	LeadTimeTrend      string  `json:"lead_time_trend"`
}

// ForecastRunRequest 単一予測リクエスト
type ForecastRunRequest struct {
	PartNumber      string `json:"part_number" binding:"required"`
	Vendor          string `json:"vendor" binding:"required"`
	Country         string `json:"country" binding:"required"`
	ConfidenceLevel int    `json:"confidence_level"` // 90, 95, 99（デフォルト: 95）
}

// BenchmarkRunRequest ベンチマーク実行リクエスト
type BenchmarkRunRequest struct {
	ConfidenceLevel int `json:"confidence_level"` // 90, 95, 99（デフォルト: 95）
}

// BulkProgress は一括予測のバッチごとの進捗
type BulkProgress struct {
	Processed int `json:"processed"` // 処理済みの組み合わせ数
	Total     int `json:"total"`
}

// BulkFailure は一括予測中に失敗した組み合わせ
type BulkFailure struct {
	Key   CombinationKey `json:"key"`
	Error string         `json:"error"`
}

// BulkForecastReport は一括予測の実行結果
type BulkForecastReport struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failures  []BulkFailure  `json:"failures,omitempty"`
	Progress  []BulkProgress `json:"progress"`
}

// ReportHeader はアーカイブ済みレポートの一覧表示用ヘッダー
type ReportHeader struct {
	ReportID   string `json:"report_id"`
	ReportType string `json:"report_type"` // "forecast" または "benchmark"
	CreatedAt  string `json:"created_at"`
	Summary    string `json:"summary"`
}

// DatasetSummary は現在の作業データセットの概況
type DatasetSummary struct {
	HistoricalCount  int `json:"historical_count"`
	RemovedOutliers  int `json:"removed_outliers"`
	NegotiationCount int `json:"negotiation_count"`
	ForecastCount    int `json:"forecast_count"`
	BenchmarkCount   int `json:"benchmark_count"`
	CombinationCount int `json:"combination_count"`
}
