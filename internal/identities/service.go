package identities

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/pkg/metrics"
	"github.com/bitsecure/platform/pkg/models"
)

// IdentityService defines account and authentication operations.
type IdentityService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	ValidateToken(token string) (string, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	Stats(ctx context.Context) (*models.AdminStats, error)
}

// Service implements IdentityService.
type Service struct {
	logger             *zap.Logger
	db                 *gorm.DB
	notifier           notifications.NotificationService
	jwtSecret          string
	jwtExpirationHours int
}

// NewService creates a new IdentityService.
func NewService(logger *zap.Logger, db *gorm.DB, notifier notifications.NotificationService, jwtSecret string, jwtExpirationHours int) (IdentityService, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	if jwtExpirationHours <= 0 {
		jwtExpirationHours = 24
	}

	return &Service{
		logger:             logger,
		db:                 db,
		notifier:           notifier,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpirationHours,
	}, nil
}

// Register creates a new account and returns it with a session token.
// The first account ever created is flagged administrator. The emptiness
// check and the insert run in one DB transaction, but concurrent initial
// registrations can still both observe an empty store; that check-then-act
// ambiguity is documented behavior, not a guarantee.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Balance:      0,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return ErrDuplicateEmail
		}

		var total int64
		if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		user.IsAdmin = total == 0

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.Inc()
	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
		zap.Bool("is_admin", user.IsAdmin))

	if s.notifier != nil {
		_, err := s.notifier.Emit(ctx,
			"New User Registered",
			fmt.Sprintf("A new user has registered: %s (%s)", user.Name, user.Email),
			models.NotificationTypeUserRegistration,
			&user.ID,
			&models.NotificationData{UserName: user.Name, UserEmail: user.Email},
		)
		if err != nil {
			s.logger.Warn("Failed to emit registration notification", zap.Error(err))
		}
	}

	token, err := s.generateToken(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.AuthResponse{AccessToken: token, TokenType: "bearer", User: user}, nil
}

// Login authenticates an account by email and password.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.AuthResponse{AccessToken: token, TokenType: "bearer", User: &user}, nil
}

// ValidateToken parses a session token and returns the account id it carries.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}

// IsAdmin reports whether the account carries the administrator flag.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// GetUser fetches an account by id.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &user, nil
}

// ListUsers returns all accounts, for the admin surface.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0)
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(100).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Stats returns aggregate counts for the admin dashboard.
func (s *Service) Stats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(balance), 0)").Scan(&stats.TotalBalance).Error; err != nil {
		return nil, fmt.Errorf("failed to sum balances: %w", err)
	}
	return &stats, nil
}

func (s *Service) generateToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour * time.Duration(s.jwtExpirationHours)).Unix(),
	})
	return token.SignedString([]byte(s.jwtSecret))
}
