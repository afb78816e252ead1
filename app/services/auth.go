package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/security"
)

const (
	MaxUsernameLength = 50
	MinPasswordLength = 6
)

// Session is an issued login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *models.Account
}

type AuthService struct {
	accounts AccountStore
	subjects SubjectStore
	hasher   *security.Hasher
	tokens   *security.Tokens
}

func NewAuthService(repo Repository, hasher *security.Hasher, tokens *security.Tokens) *AuthService {
	return &AuthService{accounts: repo, subjects: repo, hasher: hasher, tokens: tokens}
}

// Authenticate verifies username and password. Unknown usernames and wrong
// passwords fail with the same error after the same amount of bcrypt work.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		s.hasher.Burn(password)
		return nil, apperr.BadCredentials()
	}

	acc, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.hasher.Burn(password)
			return nil, apperr.BadCredentials()
		}
		return nil, err
	}
	if !s.hasher.Check(password, acc.PasswordHash) {
		return nil, apperr.BadCredentials()
	}
	return acc, nil
}

// Login authenticates and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	acc, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(acc)
}

func (s *AuthService) issue(acc *models.Account) (*Session, error) {
	token, exp, err := s.tokens.Issue(acc)
	if err != nil {
		return nil, apperr.Internalf(err, "issue token")
	}
	return &Session{Token: token, ExpiresAt: exp, Account: acc}, nil
}

// Resolve validates a raw token and reloads its account, so deleted accounts
// and role changes take effect on the next request.
func (s *AuthService) Resolve(ctx context.Context, raw string) (*models.Actor, error) {
	unauthenticated := apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
	if raw == "" {
		return nil, unauthenticated
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, unauthenticated
	}
	acc, err := s.accounts.GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, unauthenticated
		}
		return nil, err
	}
	return models.ActorFromAccount(acc, claims.ID), nil
}

type RegisterInput struct {
	Username   string
	Password   string
	FullName   string
	Gender     models.Gender
	SubjectIDs []string
}

// Register creates a Student account. The role cannot be chosen.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateCredentials(in.Username, in.Password); err != nil {
		return nil, err
	}
	if in.FullName == "" {
		in.FullName = in.Username
	}
	subjectIDs := dedupe(in.SubjectIDs)
	if err := checkSubjects(ctx, s.subjects, subjectIDs); err != nil {
		return nil, err
	}
	hash, err := hashPassword(s.hasher, in.Password)
	if err != nil {
		return nil, err
	}

	acc := &models.Account{
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         models.RoleStudent,
		Gender:       in.Gender,
	}
	if acc.Gender == "" {
		acc.Gender = models.Other
	}
	if err := s.accounts.CreateAccount(ctx, acc, subjectIDs); err != nil {
		return nil, err
	}
	return acc, nil
}

// ChangePassword requires the current password.
func (s *AuthService) ChangePassword(ctx context.Context, actor *models.Actor, current, next string) error {
	acc, err := s.accounts.GetAccountByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !s.hasher.Check(current, acc.PasswordHash) {
		return apperr.Validation("Current password is incorrect.")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := hashPassword(s.hasher, next)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, acc.ID, hash)
}

func validateCredentials(username, password string) error {
	if username == "" {
		return apperr.Validation("Username is required.")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return apperr.Validation("Username must be at most 50 characters.")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return apperr.Validation("Username must not contain spaces.")
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperr.Validation("Password must be at least 6 characters.")
	}
	return nil
}

func checkSubjects(ctx context.Context, subjects SubjectStore, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ok, err := subjects.SubjectsExist(ctx, ids)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("Unknown subject.")
	}
	return nil
}

func hashPassword(h *security.Hasher, password string) (string, error) {
	hash, err := h.Hash(password)
	if err != nil {
		if security.IsTooLong(err) {
			return "", apperr.Validation("Password is too long.")
		}
		return "", apperr.Internalf(err, "hash password")
	}
	return hash, nil
}
