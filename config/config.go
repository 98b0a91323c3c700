package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL          string
	JWTSecretKey         string
	ServerPort           int
	OperatorName         string
	OperatorPasswordHash string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecretKey:         os.Getenv("JWT_SECRET_KEY"),
		OperatorName:         os.Getenv("OPERATOR_NAME"),
		OperatorPasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		R2AccountID:          os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:        os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:    os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:         os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:      os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	required := map[string]string{
		"DATABASE_URL":           cfg.DatabaseURL,
		"JWT_SECRET_KEY":         cfg.JWTSecretKey,
		"OPERATOR_NAME":          cfg.OperatorName,
		"OPERATOR_PASSWORD_HASH": cfg.OperatorPasswordHash,
		"R2_ACCOUNT_ID":          cfg.R2AccountID,
		"R2_ACCESS_KEY_ID":       cfg.R2AccessKeyID,
		"R2_SECRET_ACCESS_KEY":   cfg.R2SecretAccessKey,
		"R2_BUCKET_NAME":         cfg.R2BucketName,
		"R2_PUBLIC_BASE_URL":     cfg.R2PublicBaseURL,
	}
	for name, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%s environment variable is not set", name)
		}
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	return cfg, nil
}
