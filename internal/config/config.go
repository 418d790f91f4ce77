package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	TelegramBotToken string // ボットトークン
	AdminChatID      int64  // スタッフ通知チャット
	WebhookURL       string // 空ならlong-pollingで動く

	RedisAddr       string        // カタログキャッシュ
	CatalogCacheTTL time.Duration // キャッシュTTL

	LowStockThreshold int64 // 残数がこれ以下で低在庫アラート

	DeliveryFee      int64 // 宅配の配送料（0なら無料）
	DeliveryFreeFrom int64 // この金額以上で配送料免除

	OrderNumberWithDate bool // 注文番号に日付を入れる（D-21.06-001形式）

	FeedbackDelay time.Duration // 完了通知から評価依頼までの待ち
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
	}

	//必須チェック
	if cfg.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	adminChatID, err := mustParseInt("ADMIN_CHAT_ID")
	if err != nil {
		return Config{}, err
	}
	cfg.AdminChatID = adminChatID

	cacheTTL, err := intOr("CATALOG_CACHE_TTL_SECONDS", 5)
	if err != nil {
		return Config{}, err
	}
	cfg.CatalogCacheTTL = time.Duration(cacheTTL) * time.Second

	cfg.LowStockThreshold, err = intOr("LOW_STOCK_THRESHOLD", 3)
	if err != nil {
		return Config{}, err
	}

	cfg.DeliveryFee, err = intOr("DELIVERY_FEE", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.DeliveryFreeFrom, err = intOr("DELIVERY_FREE_FROM", 0)
	if err != nil {
		return Config{}, err
	}

	cfg.OrderNumberWithDate = os.Getenv("ORDER_NUMBER_WITH_DATE") == "true"

	feedbackMin, err := intOr("FEEDBACK_DELAY_MINUTES", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.FeedbackDelay = time.Duration(feedbackMin) * time.Minute

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustParseInt(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func intOr(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
