package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/event-driven-wallet/internal/transaction/httpapi/handler"
	"github.com/event-driven-wallet/internal/transaction/httpapi/middleware"
)

// setupRouter configures API routes and middleware for the transaction service
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	balanceHandler *handler.BalanceHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	v1 := r.Group("/api/v1")
	{
		transactions := v1.Group("/transactions")
		{
			transactions.POST("/deposit", transactionHandler.Deposit)
			transactions.POST("/withdrawal", transactionHandler.Withdraw)
			transactions.POST("/transfer", transactionHandler.Transfer)
			transactions.GET("", transactionHandler.ListByWallet)
			transactions.GET("/:id", transactionHandler.GetByID)
		}

		balances := v1.Group("/balances")
		{
			balances.GET("/:walletId", balanceHandler.GetByWalletID)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
