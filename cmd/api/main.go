package main

import (
	"context"
	"log"
	"strings"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/handler"
	infraCache "app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/notify"
	"app/internal/pricing"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/validator"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	// .envはローカル実行用。無くてもよい。
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Customer{},
		&model.InventoryAdjustment{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	customerRepo := infraRepo.NewCustomerGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//カタログキャッシュ（Redis）
	redisClient, err := infraCache.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	productCache := infraCache.NewRedisProductCache(redisClient, cfg.CatalogCacheTTL)

	//イベントバス
	bus := event.NewBus()

	//配送料ポリシー
	var policy pricing.Policy = pricing.FreeDelivery{}
	if cfg.DeliveryFee > 0 {
		policy = pricing.ThresholdSurcharge{Fee: cfg.DeliveryFee, WaiveAt: cfg.DeliveryFreeFrom}
	}

	//Usecase生成
	catalogUC := usecase.NewCatalogUsecase(productRepo, inventoryRepo, productCache, bus, cfg.LowStockThreshold)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(
		txManager, orderRepo, productCache, bus, policy,
		validator.NewOrderValidator(),
		cfg.LowStockThreshold, cfg.OrderNumberWithDate,
	)
	statusUC := usecase.NewOrderStatusUsecase(txManager, productCache, bus)
	customerUC := usecase.NewCustomerUsecase(customerRepo)

	//Telegramボット
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}
	dispatcher := notify.NewDispatcher(bot, cfg.AdminChatID, cfg.FeedbackDelay, orderRepo, customerUC, statusUC, catalogUC)

	//イベント購読。顧客台帳のupsertを先に、通知を後に登録する
	//（並行実行なので順序保証はないが、登録は意図を揃えておく）。
	bus.Subscribe(event.TypeOrderPlaced, customerUC.HandleOrderPlaced)
	dispatcher.Subscribe(bus)

	//webhookかlong-pollingか
	if cfg.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(cfg.WebhookURL, "/") + "/bot" + cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("webhook config: %v", err)
		}
		if _, err := bot.Request(wh); err != nil {
			log.Fatalf("webhook register: %v", err)
		}
	} else {
		go dispatcher.Run(context.Background())
	}

	//Handler生成
	handlers := server.Handlers{
		Product:  handler.NewProductHandler(catalogUC),
		Cart:     handler.NewCartHandler(cartUC),
		Action:   handler.NewActionHandler(cartUC, orderUC),
		Order:    handler.NewOrderHandler(orderUC),
		Webhook:  handler.NewWebhookHandler(dispatcher),
		BotToken: cfg.TelegramBotToken,
	}

	//Server起動
	if err := server.Start(":"+cfg.Port, handlers); err != nil {
		log.Fatalf("server: %v", err)
	}
}
