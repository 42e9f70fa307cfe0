package service

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/repository"

	"go.uber.org/zap"
)

const (
	minPasswordLength = 5
	maxUsernameLength = 64
)

// AccountService registration and login against the record store
type AccountService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Usernames(ctx context.Context) ([]string, error)
}

type accountService struct {
	records repository.RecordStore
	logger  *zap.Logger
}

func NewAccountService(records repository.RecordStore, logger *zap.Logger) AccountService {
	return &accountService{records: records, logger: logger}
}

// Register creates a credential row after checking the username and password rules.
func (s *accountService) Register(ctx context.Context, username, password string) error {
	// 1. normalise and validate input
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	// 2. append credential row
	if err := s.records.AddCredential(ctx, username, password); err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			s.logger.Info("Registration rejected",
				zap.String("username", username),
				zap.String("reason", "duplicate_user"),
			)
		}
		return err
	}

	s.logger.Info("User registered", zap.String("username", username))
	return nil
}

// Login returns models.ErrInvalidCredentials unless username/password match a credential row.
func (s *accountService) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" {
		return models.NewValidationError("username", "required")
	}
	if password == "" {
		return models.NewValidationError("password", "required")
	}

	ok, err := s.records.Verify(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("User login failed",
			zap.String("username", username),
			zap.String("reason", "invalid_credentials"),
		)
		return models.ErrInvalidCredentials
	}
	return nil
}

func (s *accountService) Usernames(ctx context.Context) ([]string, error) {
	return s.records.Usernames(ctx)
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return models.NewValidationError("username", "required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return models.NewValidationError("username", "must be at most 64 characters")
	case strings.ContainsAny(username, "\r\n"):
		return models.NewValidationError("username", "must be a single line")
	}
	return nil
}

// validatePassword: at least 5 characters with one letter and one digit.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return models.NewValidationError("password", "must be more than 4 characters long")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return models.NewValidationError("password", "must contain at least one letter and one number")
	}
	if strings.ContainsAny(password, "\r\n") {
		return models.NewValidationError("password", "must be a single line")
	}
	return nil
}
