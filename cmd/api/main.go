package main

import (
	"log"
	"time"

	"market/internal/config"
	"market/internal/domain/model"
	"market/internal/handler"
	"market/internal/infra/db"
	infraRepo "market/internal/infra/repository"
	"market/internal/payment"
	"market/internal/server"
	"market/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatal(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Item{},
		&model.CartLine{},
		&model.Purchase{},
	); err != nil {
		log.Fatal(err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	itemRepo := infraRepo.NewItemGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	purchaseRepo := infraRepo.NewPurchaseGormRepository(gormDB)
	analyticsRepo := infraRepo.NewAnalyticsGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB, 3*time.Second)

	//決済ゲートウェイ
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, cfg.JWTSecret, 15*time.Minute)
	itemUC := usecase.NewItemUsecase(itemRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, itemRepo)
	paymentUC := usecase.NewPaymentUsecase(cartRepo, gateway)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, purchaseRepo, itemRepo, gateway)
	purchaseUC := usecase.NewPurchaseUsecase(purchaseRepo, itemRepo)
	analyticsUC := usecase.NewAnalyticsUsecase(analyticsRepo)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	itemH := handler.NewItemHandler(itemUC)
	cartH := handler.NewCartHandler(cartUC)
	checkoutH := handler.NewCheckoutHandler(paymentUC, checkoutUC)
	purchaseH := handler.NewPurchaseHandler(purchaseUC)
	analyticsH := handler.NewAnalyticsHandler(analyticsUC)

	//Server起動
	e := server.New(cfg, authH, itemH, cartH, checkoutH, purchaseH, analyticsH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
