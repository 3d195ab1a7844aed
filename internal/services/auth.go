package services

import (
	"context"
	"errors"
	"regexp"
	"time"
	"unicode/utf16"

	"github.com/sbilibin2017/gw-todo/internal/logger"
	"github.com/sbilibin2017/gw-todo/internal/models"
	"github.com/sbilibin2017/gw-todo/internal/repositories"
	"github.com/sbilibin2017/gw-todo/internal/tracing"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=services

// Error variables
var (
	ErrInvalidEmailOrPassword = errors.New("invalid email or password")
	ErrEmailAlreadyInUse      = errors.New("email already in use")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

const (
	minPasswordLength = 6
	passwordHashCost  = 10
	// bcrypt only reads the first 72 bytes of a password.
	maxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// passwordLength counts UTF-16 code units.
func passwordLength(password string) int {
	return len(utf16.Encode([]rune(password)))
}

// passwordKey returns the bytes handed to bcrypt. Longer passwords are
// truncated to 72 bytes instead of being rejected.
func passwordKey(password string) []byte {
	key := []byte(password)
	if len(key) > maxPasswordBytes {
		key = key[:maxPasswordBytes]
	}
	return key
}

// UserReader defines read-only operations for users.
type UserReader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserWriter defines write operations for users.
type UserWriter interface {
	Save(ctx context.Context, email, passwordHash string) (int64, error)
}

// JWTGenerator defines an interface for generating JWT tokens.
type JWTGenerator interface {
	Generate(ctx context.Context, userID int64) (string, error)
}

// AuthService handles registration and login.
type AuthService struct {
	reader      UserReader
	writer      UserWriter
	jwt         JWTGenerator
	kafkaWriter KafkaWriter
}

// NewAuthService creates a new AuthService instance. kafkaWriter may be nil.
func NewAuthService(reader UserReader, writer UserWriter, jwt JWTGenerator, kafkaWriter KafkaWriter) *AuthService {
	return &AuthService{
		reader:      reader,
		writer:      writer,
		jwt:         jwt,
		kafkaWriter: kafkaWriter,
	}
}

// Register registers a new user.
func (svc *AuthService) Register(ctx context.Context, email, password string) (err error) {
	ctx, span := tracing.Start(ctx, "AuthService.Register")
	defer func() { tracing.End(span, err) }()

	if !emailPattern.MatchString(email) || passwordLength(password) < minPasswordLength {
		logger.FromContext(ctx).Warnw("invalid registration input", "email", email)
		return ErrInvalidEmailOrPassword
	}

	user, err := svc.reader.GetByEmail(ctx, email)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to check user exists", "err", err)
		return err
	}
	if user != nil {
		logger.FromContext(ctx).Warnw("user already exists", "email", email)
		return ErrEmailAlreadyInUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword(passwordKey(password), passwordHashCost)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to hash password", "err", err)
		return err
	}

	userID, err := svc.writer.Save(ctx, email, string(hashedPassword))
	if err != nil {
		if errors.Is(err, repositories.ErrUniqueViolation) {
			logger.FromContext(ctx).Warnw("user created concurrently", "email", email)
			return ErrEmailAlreadyInUse
		}
		logger.FromContext(ctx).Errorw("failed to save user", "err", err)
		return err
	}

	publishEvent(ctx, svc.kafkaWriter, newEvent(models.EventUserRegistered, userID, 0, time.Now()))
	return nil
}

// Login authenticates a user and returns a JWT token. An unknown email and a
// wrong password are reported with the same error.
func (svc *AuthService) Login(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := tracing.Start(ctx, "AuthService.Login")
	defer func() { tracing.End(span, err) }()

	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := svc.reader.GetByEmail(ctx, email)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to get user", "err", err)
		return "", err
	}
	if user == nil {
		logger.FromContext(ctx).Warnw("login for unknown email", "email", email)
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey(password)); err != nil {
		logger.FromContext(ctx).Warnw("invalid credentials", "email", email)
		return "", ErrInvalidCredentials
	}

	token, err = svc.jwt.Generate(ctx, user.ID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to generate JWT", "err", err)
		return "", err
	}

	return token, nil
}
