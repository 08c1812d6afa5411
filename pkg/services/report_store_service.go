package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"procure-forecast-api/pkg/models"
)

const (
	reportCollectionName = "procure_forecast_reports"
	reportVectorSize     = uint64(1536) // text-embedding-3-smallの次元数
)

// Embedder はレポート要約のベクトル化に使う境界
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ReportStoreService は予測・ベンチマークの実行レポートをQdrantにアーカイブする。
// 要約テキストのEmbeddingをベクトルとして保存するため、過去レポートの類似検索にも使える。
type ReportStoreService struct {
	pointsClient      qdrant.PointsClient
	collectionsClient qdrant.CollectionsClient
	embedder          Embedder
}

// NewReportStoreService は新しいReportStoreServiceを初期化して返します。
// APIキーの有無で、Cloud接続(TLS+APIキー)とローカル接続(非セキュア)を切り替える。
func NewReportStoreService(embedder Embedder, qdrantURL string, qdrantAPIKey string) (*ReportStoreService, error) {
	var dialOpts []grpc.DialOption

	if qdrantAPIKey != "" {
		log.Println("Qdrant Cloud (TLS) への接続を準備します...")
		creds := credentials.NewTLS(&tls.Config{})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))

		// APIキー認証インターセプタを追加
		authInterceptor := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", qdrantAPIKey)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(authInterceptor))
	} else {
		log.Println("ローカルのQdrant (非TLS) への接続を準備します...")
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("QdrantへのgRPCクライアント作成に失敗: %w", err)
	}

	return &ReportStoreService{
		pointsClient:      qdrant.NewPointsClient(conn),
		collectionsClient: qdrant.NewCollectionsClient(conn),
		embedder:          embedder,
	}, nil
}

// ensureCollection コレクションが存在することを確認し、なければ作成
func (s *ReportStoreService) ensureCollection(ctx context.Context) error {
	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collectionsClient.List(listCtx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		log.Printf("警告: コレクションリストの取得に失敗（続行します）: %v", err)
		return nil // 既存の場合はUpsert時に成功する
	}

	for _, collection := range res.GetCollections() {
		if collection.GetName() == reportCollectionName {
			return nil
		}
	}

	log.Printf("コレクション '%s' を作成します...", reportCollectionName)
	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = s.collectionsClient.Create(createCtx, &qdrant.CreateCollection{
		CollectionName: reportCollectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     reportVectorSize,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		log.Printf("警告: コレクション作成に失敗（続行します）: %v", err)
	}
	return nil
}

// StoreReport はレポート本文と要約をアーカイブし、採番したヘッダーを返す。
// reportType は "forecast" または "benchmark"。
func (s *ReportStoreService) StoreReport(ctx context.Context, reportType string, body string, summary string) (models.ReportHeader, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return models.ReportHeader{}, err
	}

	vector, err := s.embedder.CreateEmbedding(ctx, summary)
	if err != nil {
		return models.ReportHeader{}, fmt.Errorf("要約のベクトル化に失敗: %w", err)
	}

	header := models.ReportHeader{
		ReportID:   uuid.New().String(),
		ReportType: reportType,
		CreatedAt:  time.Now().Format(time.RFC3339),
		Summary:    summary,
	}

	payload := map[string]*qdrant.Value{
		"report_type": {Kind: &qdrant.Value_StringValue{StringValue: header.ReportType}},
		"created_at":  {Kind: &qdrant.Value_StringValue{StringValue: header.CreatedAt}},
		"summary":     {Kind: &qdrant.Value_StringValue{StringValue: header.Summary}},
		"body":        {Kind: &qdrant.Value_StringValue{StringValue: body}},
	}

	waitUpsert := true
	_, err = s.pointsClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: reportCollectionName,
		Wait:           &waitUpsert,
		Points: []*qdrant.PointStruct{
			{
				Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: header.ReportID}},
				Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vector}}},
				Payload: payload,
			},
		},
	})
	if err != nil {
		return models.ReportHeader{}, fmt.Errorf("Qdrantへのレポート保存に失敗: %w", err)
	}

	log.Printf("レポート '%s' (%s) をアーカイブしました", header.ReportID, reportType)
	return header, nil
}

// ListReports はアーカイブ済みレポートのヘッダー一覧を返す。
// reportType が空でない場合はその種別のみに絞り込む。
func (s *ReportStoreService) ListReports(ctx context.Context, reportType string) ([]models.ReportHeader, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	var filter *qdrant.Filter
	if reportType != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key:   "report_type",
							Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: reportType}},
						},
					},
				},
			},
		}
	}

	limit := uint32(200)
	withPayload := true
	scrollResult, err := s.pointsClient.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: reportCollectionName,
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: withPayload}},
	})
	if err != nil {
		return nil, fmt.Errorf("Qdrantでのレポート一覧取得に失敗: %w", err)
	}

	headers := make([]models.ReportHeader, 0, len(scrollResult.GetResult()))
	for _, point := range scrollResult.GetResult() {
		headers = append(headers, models.ReportHeader{
			ReportID:   point.GetId().GetUuid(),
			ReportType: payloadString(point.GetPayload(), "report_type"),
			CreatedAt:  payloadString(point.GetPayload(), "created_at"),
			Summary:    payloadString(point.GetPayload(), "summary"),
		})
	}
	return headers, nil
}

// GetReport は指定IDのレポート本文とヘッダーを返す
func (s *ReportStoreService) GetReport(ctx context.Context, reportID string) (models.ReportHeader, string, error) {
	withPayload := true
	res, err := s.pointsClient.Get(ctx, &qdrant.GetPoints{
		CollectionName: reportCollectionName,
		Ids: []*qdrant.PointId{
			{PointIdOptions: &qdrant.PointId_Uuid{Uuid: reportID}},
		},
		WithPayload: &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: withPayload}},
	})
	if err != nil {
		return models.ReportHeader{}, "", fmt.Errorf("Qdrantでのレポート取得に失敗: %w", err)
	}
	if len(res.GetResult()) == 0 {
		return models.ReportHeader{}, "", fmt.Errorf("レポート '%s' が見つかりません", reportID)
	}

	point := res.GetResult()[0]
	header := models.ReportHeader{
		ReportID:   reportID,
		ReportType: payloadString(point.GetPayload(), "report_type"),
		CreatedAt:  payloadString(point.GetPayload(), "created_at"),
		Summary:    payloadString(point.GetPayload(), "summary"),
	}
	return header, payloadString(point.GetPayload(), "body"), nil
}

// DeleteReport は指定IDのレポートを削除する
func (s *ReportStoreService) DeleteReport(ctx context.Context, reportID string) error {
	waitDelete := true
	_, err := s.pointsClient.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: reportCollectionName,
		Wait:           &waitDelete,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{
						{PointIdOptions: &qdrant.PointId_Uuid{Uuid: reportID}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("Qdrantでのレポート削除に失敗: %w", err)
	}
	log.Printf("レポート '%s' を削除しました", reportID)
	return nil
}

// DeleteAllReports は全レポートを削除する（空フィルタは全件に一致する）
func (s *ReportStoreService) DeleteAllReports(ctx context.Context) error {
	waitDelete := true
	_, err := s.pointsClient.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: reportCollectionName,
		Wait:           &waitDelete,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("Qdrantでの全レポート削除に失敗: %w", err)
	}
	return nil
}

// payloadString はペイロードから文字列値を取り出す
func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
