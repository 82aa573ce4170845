package handlers

import (
	"errors"
	"strconv"

	"purse/internal/services/wallet"
	"purse/internal/utils/response"
	"purse/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// GetWallet returns the caller's wallet, creating it lazily on first
// access.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	currency := c.Query("currency", wallet.DefaultCurrency)
	if !validation.ValidCurrency(currency) {
		return response.BadRequest(c, "Invalid currency code")
	}

	w, err := h.walletService.GetOrCreateWallet(c.Context(), claims.UserID, currency)
	if err != nil {
		return response.ServerError(c, "Failed to get wallet")
	}

	return response.Success(c, fiber.Map{
		"wallet":    w,
		"balance":   w.GetBalance(),
		"spendable": w.SpendableAmount(),
	})
}

// GetTransactions returns the caller's ledger history, newest first.
func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return response.NotFound(c, "Wallet not found")
		}
		return response.ServerError(c, "Failed to get wallet")
	}

	limit := c.QueryInt("limit", wallet.DefaultHistoryLimit)
	offset := c.QueryInt("offset", 0)

	entries, err := h.walletService.History(c.Context(), w.ID, limit, offset)
	if err != nil {
		return response.ServerError(c, "Failed to get transactions")
	}

	return response.Success(c, fiber.Map{
		"transactions": entries,
	})
}

// Reconcile verifies a wallet's balance against its ledger. Admin only.
func (h *WalletHandler) Reconcile(c *fiber.Ctx) error {
	walletID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid wallet id")
	}

	report, err := h.walletService.Reconcile(c.Context(), uint(walletID))
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return response.NotFound(c, "Wallet not found")
		}
		return response.ServerError(c, "Failed to reconcile wallet")
	}

	return response.Success(c, report)
}

// DeactivateWallet soft-deletes a wallet, preserving its history. Admin
// only.
func (h *WalletHandler) DeactivateWallet(c *fiber.Ctx) error {
	walletID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid wallet id")
	}

	if err := h.walletService.DeactivateWallet(c.Context(), uint(walletID)); err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return response.NotFound(c, "Wallet not found")
		}
		return response.ServerError(c, "Failed to deactivate wallet")
	}

	return response.Success(c, fiber.Map{"message": "Wallet deactivated"})
}

// DeleteEntry soft-deletes a ledger entry as an administrative correction.
// Later entries keep their ledger snapshots.
func (h *WalletHandler) DeleteEntry(c *fiber.Ctx) error {
	walletID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid wallet id")
	}
	entryID := c.Params("entryId")

	if err := h.walletService.DeleteEntry(c.Context(), uint(walletID), entryID); err != nil {
		if errors.Is(err, wallet.ErrEntryNotFound) {
			return response.NotFound(c, "Ledger entry not found")
		}
		return response.ServerError(c, "Failed to delete ledger entry")
	}

	return response.Success(c, fiber.Map{"message": "Ledger entry deleted"})
}
