package handler

import (
	"errors"
	"net/http"

	"market/internal/config"
	"market/internal/middleware"
	repo "market/internal/repository"
	"market/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 支払い開始とチェックアウト確定のHTTP
type CheckoutHandler struct {
	paymentUC  *usecase.PaymentUsecase
	checkoutUC *usecase.CheckoutUsecase
}

// DI
func NewCheckoutHandler(paymentUC *usecase.PaymentUsecase, checkoutUC *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{paymentUC: paymentUC, checkoutUC: checkoutUC}
}

type PayCartRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("/payments/intent", h.createIntent)
	g.POST("/cart/pay", h.payCart)
}

func (h *CheckoutHandler) createIntent(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.paymentUC.CreateIntent(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// チェックアウト確定。
// エラー分類ごとにHTTPへ写像する（曖昧な500へまとめない：
// 呼び出し側は「支払いをやり直す」か「同じintentでリトライする」かを
// ここで区別する必要がある）。
func (h *CheckoutHandler) payCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PayCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.checkoutUC.Checkout(c.Request().Context(), userID, req.PaymentIntentID)
	if err != nil {
		var ce *usecase.ConflictError
		switch {
		case errors.As(err, &ce):
			// カートの再同期用に全行の内訳を返す
			return c.JSON(http.StatusConflict, out)
		case errors.Is(err, usecase.ErrCartEmpty):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart is empty"})
		case errors.Is(err, usecase.ErrPaymentNotConfirmed):
			return c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: "payment not completed"})
		case errors.Is(err, repo.ErrLockTimeout):
			// 確定済みの支払いは失われていない。同じintentでリトライできる。
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "checkout busy, retry with the same payment_intent_id"})
		default:
			if he, ok := usecase.AsHTTPError(err); ok {
				return c.JSON(he.Status, ErrorResponse{Error: he.Message})
			}
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "checkout failed, retry with the same payment_intent_id"})
		}
	}

	return c.JSON(http.StatusOK, out)
}
