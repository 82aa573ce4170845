package handlers

import (
	"errors"

	"purse/internal/models"
	"purse/internal/services/recharge"
	"purse/internal/services/wallet"
	"purse/internal/utils/response"
	"purse/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RechargeHandler struct {
	rechargeService recharge.Service
	walletService   wallet.Service
}

func NewRechargeHandler(rechargeService recharge.Service, walletService wallet.Service) *RechargeHandler {
	return &RechargeHandler{
		rechargeService: rechargeService,
		walletService:   walletService,
	}
}

// ownWallet resolves the caller's wallet, creating it lazily.
func (h *RechargeHandler) ownWallet(c *fiber.Ctx) (*models.Wallet, error) {
	claims, err := extractUserClaims(c)
	if err != nil {
		return nil, err
	}
	return h.walletService.GetOrCreateWallet(c.Context(), claims.UserID, wallet.DefaultCurrency)
}

// ownRecharge loads a recharge and verifies it belongs to the caller.
func (h *RechargeHandler) ownRecharge(c *fiber.Ctx) (*models.WalletRecharge, error) {
	w, err := h.ownWallet(c)
	if err != nil {
		return nil, err
	}
	r, err := h.rechargeService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if r.WalletID != w.ID {
		return nil, recharge.ErrRechargeNotFound
	}
	return r, nil
}

// CreateRecharge starts a new top-up in the initiated state.
func (h *RechargeHandler) CreateRecharge(c *fiber.Ctx) error {
	w, err := h.ownWallet(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	r, err := h.rechargeService.Create(c.Context(), w.ID)
	if err != nil {
		return response.ServerError(c, "Failed to create recharge")
	}

	return response.Created(c, fiber.Map{"recharge": r})
}

// CreateRechargePayment attaches a payment to the recharge. Safe to retry:
// the payment is keyed on the recharge id.
func (h *RechargeHandler) CreateRechargePayment(c *fiber.Ctx) error {
	var input struct {
		Gateway string          `json:"gateway"`
		Amount  decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Gateway == "" {
		return response.BadRequest(c, "Gateway is required")
	}
	if !validation.ValidAmount(input.Amount) {
		return response.BadRequest(c, "Amount must be greater than 0")
	}

	r, err := h.ownRecharge(c)
	if err != nil {
		return h.rechargeError(c, err)
	}

	r, payment, err := h.rechargeService.CreatePayment(c.Context(), r.ID, input.Gateway, input.Amount, c.IP())
	if err != nil {
		return h.rechargeError(c, err)
	}

	return response.Success(c, fiber.Map{
		"recharge": r,
		"payment":  payment,
	})
}

// CompleteRecharge settles the attached payment and deposits the amount.
func (h *RechargeHandler) CompleteRecharge(c *fiber.Ctx) error {
	r, err := h.ownRecharge(c)
	if err != nil {
		return h.rechargeError(c, err)
	}

	r, err = h.rechargeService.Complete(c.Context(), r.ID)
	if err != nil {
		var gwErr *recharge.GatewayError
		if errors.As(err, &gwErr) {
			// Provider declined: the recharge is now failed, report both.
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":    gwErr.Message,
				"recharge": r,
			})
		}
		return h.rechargeError(c, err)
	}

	return response.Success(c, fiber.Map{"recharge": r})
}

// GetRecharge returns a single recharge with its payment.
func (h *RechargeHandler) GetRecharge(c *fiber.Ctx) error {
	r, err := h.ownRecharge(c)
	if err != nil {
		return h.rechargeError(c, err)
	}
	return response.Success(c, fiber.Map{"recharge": r})
}

// ListRecharges returns the caller's recharges, newest first.
func (h *RechargeHandler) ListRecharges(c *fiber.Ctx) error {
	w, err := h.ownWallet(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	limit := c.QueryInt("limit", wallet.DefaultHistoryLimit)
	offset := c.QueryInt("offset", 0)

	recharges, err := h.rechargeService.ListByWallet(c.Context(), w.ID, limit, offset)
	if err != nil {
		return response.ServerError(c, "Failed to list recharges")
	}

	return response.Success(c, fiber.Map{"recharges": recharges})
}

func (h *RechargeHandler) rechargeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, fiber.ErrUnauthorized):
		return response.Unauthorized(c, "invalid claims")
	case errors.Is(err, recharge.ErrRechargeNotFound),
		errors.Is(err, recharge.ErrWalletNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, recharge.ErrInvalidAmount),
		errors.Is(err, recharge.ErrNoPayment):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, recharge.ErrAmountMismatch),
		errors.Is(err, recharge.ErrInvalidTransition):
		return response.Conflict(c, err.Error())
	}

	var gwErr *recharge.GatewayError
	if errors.As(err, &gwErr) {
		return response.PaymentRequired(c, gwErr.Message)
	}
	return response.ServerError(c, "Failed to process recharge")
}
