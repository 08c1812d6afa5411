package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":                               "9090",
		"ENVIRONMENT":                        "test",
		"API_KEY":                            "secret",
		"AZURE_OPENAI_ENDPOINT":              "https://test.openai.azure.com/",
		"AZURE_OPENAI_API_KEY":               "test-key",
		"AZURE_OPENAI_API_VERSION":           "2023-12-01-preview",
		"AZURE_OPENAI_CHAT_DEPLOYMENT_NAME":  "test-deployment",
		"FORECAST_MODEL":                     "gpt-4o",
		"FORECAST_BATCH_SIZE":                "10",
		"QDRANT_URL":                         "localhost:6334",
		"ADMIN_USERNAME":                     "ops",
		"ADMIN_PASSWORD":                     "ops-pass",
	}

	// 環境変数を設定
	for key, value := range testCases {
		os.Setenv(key, value)
	}

	// テスト後にクリーンアップ
	defer func() {
		for key := range testCases {
			os.Unsetenv(key)
		}
	}()

	// 設定を読み込み
	cfg := LoadConfig()

	// 検証
	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be '9090', got '%s'", cfg.Port)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}

	if cfg.APIKey != "secret" {
		t.Errorf("Expected APIKey to be 'secret', got '%s'", cfg.APIKey)
	}

	if cfg.AzureOpenAIEndpoint != "https://test.openai.azure.com/" {
		t.Errorf("Expected AzureOpenAIEndpoint to be 'https://test.openai.azure.com/', got '%s'", cfg.AzureOpenAIEndpoint)
	}

	if cfg.AzureOpenAIChatDeploymentName != "test-deployment" {
		t.Errorf("Expected AzureOpenAIChatDeploymentName to be 'test-deployment', got '%s'", cfg.AzureOpenAIChatDeploymentName)
	}

	if cfg.ForecastModel != "gpt-4o" {
		t.Errorf("Expected ForecastModel to be 'gpt-4o', got '%s'", cfg.ForecastModel)
	}

	if cfg.ForecastBatchSize != 10 {
		t.Errorf("Expected ForecastBatchSize to be 10, got %d", cfg.ForecastBatchSize)
	}

	if cfg.QdrantURL != "localhost:6334" {
		t.Errorf("Expected QdrantURL to be 'localhost:6334', got '%s'", cfg.QdrantURL)
	}

	if cfg.AdminUsername != "ops" {
		t.Errorf("Expected AdminUsername to be 'ops', got '%s'", cfg.AdminUsername)
	}

	if cfg.AdminPassword != "ops-pass" {
		t.Errorf("Expected AdminPassword to be 'ops-pass', got '%s'", cfg.AdminPassword)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// 環境変数をクリア
	vars := []string{
		"PORT", "ENVIRONMENT", "API_KEY",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY",
		"AZURE_OPENAI_API_VERSION", "AZURE_OPENAI_CHAT_DEPLOYMENT_NAME",
		"FORECAST_MODEL", "FORECAST_BATCH_SIZE", "QDRANT_URL",
		"ADMIN_USERNAME", "ADMIN_PASSWORD",
	}

	for _, v := range vars {
		os.Unsetenv(v)
	}

	// 設定を読み込み
	cfg := LoadConfig()

	// デフォルト値の検証
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
	}

	if cfg.ForecastBatchSize != 5 {
		t.Errorf("Expected default ForecastBatchSize to be 5, got %d", cfg.ForecastBatchSize)
	}

	if cfg.ForecastModel != "gpt-4o-mini" {
		t.Errorf("Expected default ForecastModel to be 'gpt-4o-mini', got '%s'", cfg.ForecastModel)
	}

	if cfg.AdminUsername != "admin" {
		t.Errorf("Expected default AdminUsername to be 'admin', got '%s'", cfg.AdminUsername)
	}
}

func TestLoadConfigInvalidBatchSize(t *testing.T) {
	os.Setenv("FORECAST_BATCH_SIZE", "not-a-number")
	defer os.Unsetenv("FORECAST_BATCH_SIZE")

	cfg := LoadConfig()

	// 不正な値の場合はデフォルトにフォールバック
	if cfg.ForecastBatchSize != 5 {
		t.Errorf("Expected ForecastBatchSize to fall back to 5, got %d", cfg.ForecastBatchSize)
	}
}
