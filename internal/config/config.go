package config

import (
	"fmt"
	"os"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	StripeSecretKey string // Stripeのシークレットキー（未設定ならデモモード）

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSで使う）
}

// Loadは環境変数から設定を読む
func Load() (Config, error) {
	cfg := Config{
		Port:            os.Getenv("PORT"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		GoEnv:           os.Getenv("GO_ENV"),
		FEURL:           os.Getenv("FE_URL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	// Stripeキー未設定はデモモードで動かす（intentはpi_mock_になる）
	if cfg.StripeSecretKey == "" {
		cfg.StripeSecretKey = "sk_test_demo_key"
	}

	return cfg, nil
}
