package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, loanHandler *LoanHandler, entryHandler *EntryHandler, dayCloseHandler *DayCloseHandler, receiptHandler *ReceiptHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Loan routes (protected)
	loans := api.Group("/loans")
	loans.Use(authMiddleware.Authenticate())
	loans.Use(middleware.RateLimitMiddleware(rateLimiter))
	loans.POST("", loanHandler.CreateLoan)
	loans.GET("", loanHandler.GetLoans)
	loans.GET("/:id", loanHandler.GetLoan)
	loans.PATCH("/:id", loanHandler.UpdateLoan)
	loans.POST("/:id/close", loanHandler.CloseLoan)
	loans.DELETE("/:id", loanHandler.DeleteLoan)
	loans.GET("/:id/summary", loanHandler.GetLoanSummary)

	// Entry routes (protected)
	entries := api.Group("/entries")
	entries.Use(authMiddleware.Authenticate())
	entries.Use(middleware.RateLimitMiddleware(rateLimiter))
	entries.POST("", entryHandler.CreateEntry)
	entries.GET("/loan/:loanId", entryHandler.GetEntriesByLoan)
	entries.GET("/loan/:loanId/details", entryHandler.GetLoanDetails)
	entries.POST("/:id/receipt", receiptHandler.UploadReceipt)
	entries.GET("/:id/receipt", receiptHandler.GetReceiptURL)

	// Day close routes (protected)
	dayClose := api.Group("/day-close")
	dayClose.Use(authMiddleware.Authenticate())
	dayClose.Use(middleware.RateLimitMiddleware(rateLimiter))
	dayClose.POST("", dayCloseHandler.RunDayClose)
	dayClose.GET("/runs", dayCloseHandler.GetDayCloseRuns)

	// WebSocket endpoint (token validated in handler; browsers can't set
	// headers on WebSocket requests)
	e.GET("/ws", wsHandler.HandleWS)
}
