package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port                               string
	APIKey                             string
	Environment                        string
	AzureOpenAIEndpoint                string
	AzureOpenAIAPIKey                  string
	AzureOpenAIAPIVersion              string
	AzureOpenAIChatDeploymentName      string
	AzureOpenAIEmbeddingDeploymentName string
	ForecastModel                      string
	ForecastBatchSize                  int
	QdrantURL                          string
	QdrantAPIKey                       string
	AdminUsername                      string
	AdminPassword                      string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                               getEnv("PORT", "8080"),
		APIKey:                             getEnv("API_KEY", ""),
		Environment:                        getEnv("ENVIRONMENT", "development"),
		AzureOpenAIEndpoint:                getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:                  getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:              getEnv("AZURE_OPENAI_API_VERSION", "2023-12-01-preview"),
		AzureOpenAIChatDeploymentName:      getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", "gpt-4o-mini"),
		AzureOpenAIEmbeddingDeploymentName: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME", "text-embedding-3-small"),
		ForecastModel:                      getEnv("FORECAST_MODEL", "gpt-4o-mini"),
		ForecastBatchSize:                  getEnvInt("FORECAST_BATCH_SIZE", 5),
		QdrantURL:                          getEnv("QDRANT_URL", ""),
		QdrantAPIKey:                       getEnv("QDRANT_API_KEY", ""),
		AdminUsername:                      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:                      getEnv("ADMIN_PASSWORD", "admin123"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
