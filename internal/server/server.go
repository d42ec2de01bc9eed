package server

import (
	"market/internal/config"
	"market/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// New はechoを組み立ててルートを登録する
func New(
	cfg config.Config,
	authH *handler.AuthHandler,
	itemH *handler.ItemHandler,
	cartH *handler.CartHandler,
	checkoutH *handler.CheckoutHandler,
	purchaseH *handler.PurchaseHandler,
	analyticsH *handler.AnalyticsHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{cfg.FEURL},
			AllowCredentials: true,
		}))
	}

	authH.RegisterRoutes(e, cfg)
	itemH.RegisterRoutes(e, cfg)
	cartH.RegisterRoutes(e, cfg)
	checkoutH.RegisterRoutes(e, cfg)
	purchaseH.RegisterRoutes(e, cfg)
	analyticsH.RegisterRoutes(e, cfg)

	return e
}
