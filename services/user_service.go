package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"attachd/apperr"
	"attachd/models"
)

const (
	maxEmailLength = 254
	minUsernameLen = 3
	maxUsernameLen = 20
)

var (
	emailFormatRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._%+-]*@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	usernameChars = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	digitsOnlyRe  = regexp.MustCompile(`^[0-9]+$`)
)

// hasTripleRepeat reports three identical consecutive characters, e.g. "aaa".
func hasTripleRepeat(s string) bool {
	runes := []rune(s)
	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i-1] == runes[i-2] {
			return true
		}
	}
	return false
}

// UserStore is the persistence surface the user service needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// UserService registers users. It owns the username/email validation rule set
// the upload pipeline's existence check relies on being enforced at creation.
type UserService struct {
	users  UserStore
	logger *zap.Logger
}

// NewUserService creates a UserService. A nil logger is replaced with a no-op one.
func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// Save validates and persists the user. A known username with a new email
// updates that user's email in place; a taken email on a different user is
// rejected.
func (s *UserService) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	byUsername, err := s.users.FindByUsername(ctx, user.Username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "user lookup failed", err)
	}
	byEmail, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "user lookup failed", err)
	}

	switch {
	case byUsername != nil && byEmail != nil:
		return nil, apperr.New(apperr.KindInvalidInput, "this user already exists with this email")
	case byUsername != nil:
		byUsername.Email = user.Email
		if err := s.users.Save(ctx, byUsername); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to update user", err)
		}
		s.logger.Info("user email updated", zap.Int64("user_id", byUsername.ID))
		return byUsername, nil
	case byEmail != nil:
		return nil, apperr.New(apperr.KindInvalidInput, "email already exists with another user")
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create user", err)
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func validateUser(user *models.User) error {
	username := user.Username
	email := user.Email

	if strings.TrimSpace(username) == "" {
		return apperr.New(apperr.KindInvalidInput, "username cannot be empty")
	}
	if strings.TrimSpace(email) == "" {
		return apperr.New(apperr.KindInvalidInput, "email cannot be empty")
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return apperr.New(apperr.KindInvalidInput, "username must be between 3 and 20 characters")
	}
	if !emailFormatRe.MatchString(email) {
		return apperr.New(apperr.KindInvalidInput, "invalid email format")
	}
	if strings.Contains(email, " ") {
		return apperr.New(apperr.KindInvalidInput, "email cannot contain whitespace")
	}
	if strings.Count(email, "@") > 1 {
		return apperr.New(apperr.KindInvalidInput, "email cannot contain more than one '@' symbol")
	}
	if domain := email[strings.Index(email, "@")+1:]; !strings.Contains(domain, ".") {
		return apperr.New(apperr.KindInvalidInput, "email domain is invalid")
	}
	if len(email) > maxEmailLength {
		return apperr.New(apperr.KindInvalidInput, "email is too long, maximum length is 254 characters")
	}
	if local := strings.SplitN(email, "@", 2)[0]; local != "" && unicode.IsDigit(rune(local[0])) {
		return apperr.New(apperr.KindInvalidInput, "email cannot start with a number")
	}
	if hasTripleRepeat(email) {
		return apperr.New(apperr.KindInvalidInput, "email cannot contain sequential repeating characters")
	}
	if strings.Contains(email, "..") {
		return apperr.New(apperr.KindInvalidInput, "email cannot have consecutive dots")
	}
	if strings.Contains(username, " ") {
		return apperr.New(apperr.KindInvalidInput, "username cannot contain spaces")
	}
	if !usernameChars.MatchString(username) {
		return apperr.New(apperr.KindInvalidInput, "username cannot contain special characters")
	}
	if !unicode.IsLetter(rune(username[0])) {
		return apperr.New(apperr.KindInvalidInput, "username must start with a letter")
	}
	if hasTripleRepeat(username) {
		return apperr.New(apperr.KindInvalidInput, "username cannot contain sequential repeating characters")
	}
	if digitsOnlyRe.MatchString(username) {
		return apperr.New(apperr.KindInvalidInput, "username cannot contain only numbers")
	}
	if strings.HasPrefix(username, "_") || strings.HasSuffix(username, "_") {
		return apperr.New(apperr.KindInvalidInput, "username cannot start or end with an underscore")
	}
	return nil
}
