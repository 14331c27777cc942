package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/event-driven-wallet/internal/domain/wallet"
	"github.com/event-driven-wallet/internal/transaction/service"
)

// BalanceHandler handles HTTP requests for wallet balances
type BalanceHandler struct {
	service service.TransactionService
	logger  *slog.Logger
}

func NewBalanceHandler(logger *slog.Logger, svc service.TransactionService) *BalanceHandler {
	return &BalanceHandler{
		service: svc,
		logger:  logger,
	}
}

// GetByWalletID retrieves the current balance of a wallet
func (h *BalanceHandler) GetByWalletID(c *gin.Context) {
	idParam := c.Param("walletId")
	walletID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	balance, err := h.service.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{}) {
			RespondNotFound(c, err.Error())
			return
		}
		h.logger.Error("Failed to get wallet balance", "wallet_id", walletID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapBalanceToResponse(balance))
}
