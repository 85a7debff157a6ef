package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitsecure/platform/internal/funding"
	"github.com/bitsecure/platform/internal/identities"
	"github.com/bitsecure/platform/internal/ledger"
	"github.com/bitsecure/platform/internal/marketdata"
	"github.com/bitsecure/platform/internal/messaging"
	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/internal/support"
	"github.com/bitsecure/platform/pkg/metrics"
	"github.com/bitsecure/platform/pkg/models"
)

// Server is the HTTP boundary over the core services.
type Server struct {
	logger          *zap.Logger
	identitiesSvc   identities.IdentityService
	ledgerSvc       ledger.LedgerService
	fundingSvc      funding.FundingService
	notificationSvc notifications.NotificationService
	messageSvc      messaging.MessageService
	supportSvc      support.SupportService
	marketSvc       *marketdata.Service
	walletAddresses map[string]string
	corsOrigins     []string
}

// NewServer creates a new HTTP server over the given services.
func NewServer(
	logger *zap.Logger,
	identitiesSvc identities.IdentityService,
	ledgerSvc ledger.LedgerService,
	fundingSvc funding.FundingService,
	notificationSvc notifications.NotificationService,
	messageSvc messaging.MessageService,
	supportSvc support.SupportService,
	marketSvc *marketdata.Service,
	walletAddresses map[string]string,
	corsOrigins []string,
) *Server {
	return &Server{
		logger:          logger,
		identitiesSvc:   identitiesSvc,
		ledgerSvc:       ledgerSvc,
		fundingSvc:      fundingSvc,
		notificationSvc: notificationSvc,
		messageSvc:      messageSvc,
		supportSvc:      supportSvc,
		marketSvc:       marketSvc,
		walletAddresses: walletAddresses,
		corsOrigins:     corsOrigins,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	if len(s.corsOrigins) == 0 || (len(s.corsOrigins) == 1 && s.corsOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.corsOrigins
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	{
		api.GET("/", s.handleRoot)

		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
			auth.GET("/me", s.authMiddleware(), s.handleGetMe)
		}

		deposits := api.Group("/deposits", s.authMiddleware())
		{
			deposits.POST("/crypto", s.handleCryptoDeposit)
			deposits.POST("/voucher", s.handleVoucherDeposit)
		}

		api.POST("/withdrawals", s.authMiddleware(), s.handleCreateWithdrawal)
		api.GET("/transactions", s.authMiddleware(), s.handleListMyTransactions)

		api.GET("/trading/data", s.handleTradingData)
		api.GET("/crypto/prices", s.handleCryptoPrices)
		api.GET("/crypto/news", s.handleCryptoNews)
		api.GET("/wallet-addresses", s.handleWalletAddresses)

		messages := api.Group("/messages", s.authMiddleware())
		{
			messages.GET("", s.handleListMyMessages)
			messages.PUT("/:id/read", s.handleMarkMessageRead)
		}

		tickets := api.Group("/support/tickets", s.authMiddleware())
		{
			tickets.POST("", s.handleCreateTicket)
			tickets.GET("", s.handleListMyTickets)
		}

		admin := api.Group("/admin", s.authMiddleware(), s.adminMiddleware())
		{
			admin.GET("/stats", s.handleAdminStats)
			admin.GET("/users", s.handleAdminListUsers)
			admin.PUT("/users/:id/balance", s.handleAdminSetBalance)
			admin.GET("/transactions", s.handleAdminListTransactions)
			admin.PUT("/transactions/:id/approve", s.handleAdminApprove)
			admin.PUT("/transactions/:id/reject", s.handleAdminReject)
			admin.GET("/notifications", s.handleAdminListNotifications)
			admin.PUT("/notifications/:id/read", s.handleAdminMarkNotificationRead)
			admin.POST("/messages", s.handleAdminSendMessage)
			admin.GET("/messages", s.handleAdminListMessages)
			admin.GET("/support/tickets", s.handleAdminListTickets)
			admin.PUT("/support/tickets/:id/status", s.handleAdminUpdateTicketStatus)
		}
	}

	return router
}

// writeError maps domain errors to HTTP statuses via errors.Is.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, identities.ErrInvalidCredentials), errors.Is(err, identities.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, identities.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, identities.ErrUserNotFound),
		errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, notifications.ErrNotificationNotFound),
		errors.Is(err, messaging.ErrMessageNotFound),
		errors.Is(err, support.ErrTicketNotFound):
		status = http.StatusNotFound
	case errors.Is(err, identities.ErrDuplicateEmail),
		errors.Is(err, ledger.ErrAlreadyProcessed),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, funding.ErrBelowMinimum),
		errors.Is(err, funding.ErrUnsupportedAsset),
		errors.Is(err, support.ErrInvalidTicketStatus):
		status = http.StatusBadRequest
	default:
		s.logger.Error("Request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// authMiddleware validates the bearer token and loads the account into the
// request context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		userID, err := s.identitiesSvc.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := s.identitiesSvc.GetUser(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// adminMiddleware requires the administrator flag on the authenticated account.
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := s.currentUser(c)
		if user == nil || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": identities.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

func (s *Server) currentUser(c *gin.Context) *models.User {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "BitSecure Trading Platform API"})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.identitiesSvc.Register(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.identitiesSvc.Login(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetMe(c *gin.Context) {
	c.JSON(http.StatusOK, s.currentUser(c))
}

func (s *Server) handleCryptoDeposit(c *gin.Context) {
	var req models.CryptoDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, adminWallet, err := s.fundingSvc.CryptoDeposit(c.Request.Context(), s.currentUser(c), req.Crypto, req.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Deposit request sent to the administrator",
		"transaction_id": transaction.ID.String(),
		"admin_wallet":   adminWallet,
	})
}

func (s *Server) handleVoucherDeposit(c *gin.Context) {
	var req models.VoucherDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := s.fundingSvc.VoucherDeposit(c.Request.Context(), s.currentUser(c), req.VoucherCode, req.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Voucher submitted for validation",
		"transaction_id": transaction.ID.String(),
	})
}

func (s *Server) handleCreateWithdrawal(c *gin.Context) {
	var req models.WithdrawalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := s.fundingSvc.CreateWithdrawal(c.Request.Context(), s.currentUser(c), req.Method, req.Amount, req.Details)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Withdrawal requested successfully",
		"transaction_id": transaction.ID.String(),
	})
}

func (s *Server) handleListMyTransactions(c *gin.Context) {
	list, err := s.ledgerSvc.ListForUser(c.Request.Context(), s.currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleTradingData(c *gin.Context) {
	c.JSON(http.StatusOK, s.marketSvc.TradingData())
}

func (s *Server) handleCryptoPrices(c *gin.Context) {
	c.JSON(http.StatusOK, s.marketSvc.Prices())
}

func (s *Server) handleCryptoNews(c *gin.Context) {
	c.JSON(http.StatusOK, s.marketSvc.News())
}

func (s *Server) handleWalletAddresses(c *gin.Context) {
	c.JSON(http.StatusOK, s.walletAddresses)
}

func (s *Server) handleListMyMessages(c *gin.Context) {
	list, err := s.messageSvc.ListForUser(c.Request.Context(), s.currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleMarkMessageRead(c *gin.Context) {
	if err := s.messageSvc.MarkRead(c.Request.Context(), c.Param("id"), s.currentUser(c).ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}

func (s *Server) handleCreateTicket(c *gin.Context) {
	var req models.SupportTicketCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := s.supportSvc.CreateTicket(c.Request.Context(), s.currentUser(c), req.Subject, req.Message, req.Priority)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Support ticket created successfully",
		"ticket_id": ticket.ID.String(),
		"status":    "Received - we will contact you soon",
	})
}

func (s *Server) handleListMyTickets(c *gin.Context) {
	list, err := s.supportSvc.ListForUser(c.Request.Context(), s.currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleAdminStats(c *gin.Context) {
	stats, err := s.identitiesSvc.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleAdminListUsers(c *gin.Context) {
	users, err := s.identitiesSvc.ListUsers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleAdminSetBalance(c *gin.Context) {
	var req models.SetBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.fundingSvc.SetAbsoluteBalance(c.Request.Context(), c.Param("id"), req.Balance, s.currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Balance updated successfully",
		"user":    user,
	})
}

func (s *Server) handleAdminListTransactions(c *gin.Context) {
	list, err := s.ledgerSvc.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleAdminApprove(c *gin.Context) {
	transaction, err := s.fundingSvc.ApproveDeposit(c.Request.Context(), c.Param("id"), s.currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Transaction approved successfully",
		"transaction": transaction,
	})
}

func (s *Server) handleAdminReject(c *gin.Context) {
	transaction, err := s.fundingSvc.RejectDeposit(c.Request.Context(), c.Param("id"), s.currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Transaction rejected",
		"transaction": transaction,
	})
}

func (s *Server) handleAdminListNotifications(c *gin.Context) {
	limit := notifications.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	list, err := s.notificationSvc.ListRecent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleAdminMarkNotificationRead(c *gin.Context) {
	if err := s.notificationSvc.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (s *Server) handleAdminSendMessage(c *gin.Context) {
	var req models.MessageCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := s.messageSvc.Send(c.Request.Context(), req.ToUserID, req.Subject, req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Message sent successfully",
		"message_id": message.ID.String(),
	})
}

func (s *Server) handleAdminListMessages(c *gin.Context) {
	list, err := s.messageSvc.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleAdminListTickets(c *gin.Context) {
	list, err := s.supportSvc.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleAdminUpdateTicketStatus(c *gin.Context) {
	var req models.TicketStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := s.supportSvc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket status updated to " + ticket.Status,
		"ticket":  ticket,
	})
}
