package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/event-driven-wallet/internal/domain/blocklist"
	"github.com/event-driven-wallet/internal/domain/transaction"
	"github.com/event-driven-wallet/internal/domain/wallet"
	"github.com/event-driven-wallet/internal/transaction/service"
)

// TransactionHandler handles HTTP requests for money movement
type TransactionHandler struct {
	service service.TransactionService
	logger  *slog.Logger
}

func NewTransactionHandler(logger *slog.Logger, svc service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		service: svc,
		logger:  logger,
	}
}

// Deposit credits a wallet synchronously and returns the completed transaction
func (h *TransactionHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	txn, err := h.service.Deposit(c.Request.Context(), &service.DepositRequest{
		WalletID:       walletID,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(txn))
}

// Withdraw debits a wallet synchronously and returns the completed transaction
func (h *TransactionHandler) Withdraw(c *gin.Context) {
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	txn, err := h.service.Withdraw(c.Request.Context(), &service.WithdrawalRequest{
		WalletID:       walletID,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(txn))
}

// Transfer moves money between two wallets and returns both legs
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sourceID, err := uuid.Parse(req.SourceWalletID)
	if err != nil {
		RespondBadRequest(c, "Invalid source wallet ID")
		return
	}
	destID, err := uuid.Parse(req.DestinationWalletID)
	if err != nil {
		RespondBadRequest(c, "Invalid destination wallet ID")
		return
	}

	result, err := h.service.Transfer(c.Request.Context(), &service.TransferRequest{
		SourceWalletID:      sourceID,
		DestinationWalletID: destID,
		Amount:              req.Amount,
		Description:         req.Description,
		IdempotencyKey:      req.IdempotencyKey,
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	RespondCreated(c, TransferResponse{
		Outgoing: mapTransactionToResponse(result.Outgoing),
		Incoming: mapTransactionToResponse(result.Incoming),
	})
}

// GetByID retrieves transaction details, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// ListByWallet retrieves paginated transaction history for a wallet
func (h *TransactionHandler) ListByWallet(c *gin.Context) {
	walletIDParam := c.Query("wallet_id")
	walletID, err := uuid.Parse(walletIDParam)
	if err != nil {
		RespondBadRequest(c, "Invalid or missing wallet_id query parameter")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	offset := (params.Page - 1) * params.PerPage
	txns, total, err := h.service.ListTransactions(c.Request.Context(), walletID, params.PerPage, offset)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, mapTransactionToResponse(txn))
	}

	RespondWithPaginatedData(c, http.StatusOK, TransactionListResponse{Transactions: responses},
		params.Page, params.PerPage, int(total))
}

// respondDomainError maps domain errors onto HTTP status codes.
func (h *TransactionHandler) respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, transaction.ErrMissingIdemKey),
		errors.Is(err, transaction.ErrSameWallet),
		errors.Is(err, transaction.ErrInvalidCurrency):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, wallet.ErrInsufficientBalance{}):
		RespondWithError(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, blocklist.ErrUserBlocked{}):
		RespondForbidden(c, err.Error())
	case errors.Is(err, wallet.ErrWalletNotFound{}),
		errors.Is(err, transaction.ErrTransactionNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.Is(err, transaction.ErrDuplicateTransaction{}):
		RespondConflict(c, err.Error())
	default:
		h.logger.Error("Unexpected error handling transaction request", "error", err)
		RespondInternalError(c)
	}
}
