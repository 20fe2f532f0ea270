package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contacts-service/internal/apperror"
	"contacts-service/internal/auth"
	"contacts-service/internal/avatar"
	"contacts-service/internal/mailer"
	"contacts-service/internal/model"
	"contacts-service/internal/repository"
	"contacts-service/prometheus"
)

// Account messages returned to clients.
const (
	MsgUserNotFound        = "User not found"
	MsgEmailNotVerified    = "Email not verified"
	MsgAlreadyVerified     = "Verification has already been passed"
	MsgMissingEmailField   = "missing required field email"
	MsgInvalidAvatarUpload = `"avatar" must be a valid image`
)

// ErrMailerNotConfigured is returned by operations that must deliver mail when no Mailer was given.
var ErrMailerNotConfigured = errors.New("mailer is not configured")

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// UserDeps are the collaborators of UserService.
type UserDeps struct {
	Users           repository.UserRepository
	Tokens          *auth.TokenManager
	Hasher          PasswordHasher
	Mailer          mailer.Mailer
	Avatars         avatar.Storage
	Resizer         *avatar.Resizer
	RequireVerified bool
	Logger          *zap.Logger
}

// UserService implements signup, sessions and account management.
type UserService struct {
	UserDeps
}

// NewUserService creates a UserService.
func NewUserService(deps UserDeps) *UserService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Resizer == nil {
		deps.Resizer = avatar.NewResizer(avatar.DefaultSize)
	}
	return &UserService{UserDeps: deps}
}

// Signup creates an account with a Gravatar avatar and sends the
// verification email. A mail failure does not fail the signup.
func (s *UserService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	_, err := s.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("email", apperror.MsgEmailInUse)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	verificationToken := uuid.NewString()
	user := &model.User{
		Email:             email,
		PasswordHash:      hash,
		Subscription:      model.SubscriptionStarter,
		AvatarURL:         avatar.GravatarURL(email),
		VerificationToken: &verificationToken,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("email", apperror.MsgEmailInUse)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	prometheus.SignupCounter.Inc()

	s.sendVerification(ctx, user.Email, verificationToken)

	s.Logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *UserService) sendVerification(ctx context.Context, email, token string) {
	if s.Mailer == nil {
		return
	}
	if err := s.Mailer.SendVerification(ctx, email, token); err != nil {
		prometheus.RecordMail("failed")
		s.Logger.Warn("Failed to send verification email", zap.Error(err))
		return
	}
	prometheus.RecordMail("sent")
}

// Login checks the credentials and stores a fresh token, which replaces any
// earlier session. Unknown email and wrong password fail identically.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	wrong := apperror.WithMessage(apperror.ErrUnauthorized, apperror.MsgWrongCredentials)

	user, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		prometheus.RecordAuthError("wrong_credentials")
		return "", nil, wrong
	}
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.Hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			prometheus.RecordAuthError("wrong_credentials")
			return "", nil, wrong
		}
		return "", nil, fmt.Errorf("compare password: %w", err)
	}

	if s.RequireVerified && !user.Verified {
		return "", nil, apperror.WithMessage(apperror.ErrForbidden, MsgEmailNotVerified)
	}

	token, err := s.Tokens.Generate(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	if err := s.Users.SetToken(ctx, user.ID, &token); err != nil {
		return "", nil, s.sessionError("store token", err)
	}
	user.Token = &token
	prometheus.LoginCounter.Inc()

	return token, user, nil
}

// Logout clears the stored token so no earlier token authenticates again.
func (s *UserService) Logout(ctx context.Context, user *model.User) error {
	if err := s.Users.SetToken(ctx, user.ID, nil); err != nil {
		return s.sessionError("clear token", err)
	}
	user.Token = nil
	return nil
}

func (s *UserService) UpdateSubscription(ctx context.Context, user *model.User, sub model.Subscription) (*model.User, error) {
	if !sub.Valid() {
		return nil, apperror.Validation("subscription", `"subscription" must be one of [starter, pro, business]`)
	}
	updated, err := s.Users.UpdateSubscription(ctx, user.ID, sub)
	if err != nil {
		return nil, s.sessionError("update subscription", err)
	}
	return updated, nil
}

// Delete removes the account and every contact it owns. Removing an uploaded
// avatar is best effort.
func (s *UserService) Delete(ctx context.Context, user *model.User) (*model.User, error) {
	deleted, err := s.Users.DeleteWithContacts(ctx, user.ID)
	if err != nil {
		return nil, s.sessionError("delete user", err)
	}

	if s.Avatars != nil && deleted.AvatarURL != "" {
		if err := s.Avatars.Remove(ctx, deleted.AvatarURL); err != nil {
			s.Logger.Warn("Failed to remove avatar of deleted user",
				zap.String("user_id", deleted.ID), zap.Error(err))
		}
	}

	s.Logger.Info("User deleted", zap.String("user_id", deleted.ID))
	return deleted, nil
}

// UpdateAvatar resizes the upload, stores it and points the account at it.
// The previous upload is removed best effort.
func (s *UserService) UpdateAvatar(ctx context.Context, user *model.User, upload io.Reader) (string, error) {
	if s.Avatars == nil {
		return "", errors.New("avatar storage is not configured")
	}

	data, err := s.Resizer.Process(upload)
	if err != nil {
		if errors.Is(err, avatar.ErrInvalidImage) {
			return "", apperror.Validation("avatar", MsgInvalidAvatarUpload)
		}
		return "", err
	}

	url, err := s.Avatars.Save(ctx, avatar.ObjectName(user.ID), data)
	if err != nil {
		return "", err
	}
	if err := s.Users.UpdateAvatar(ctx, user.ID, url); err != nil {
		_ = s.Avatars.Remove(ctx, url)
		return "", s.sessionError("update avatar", err)
	}

	if previous := user.AvatarURL; previous != "" && previous != url {
		if err := s.Avatars.Remove(ctx, previous); err != nil {
			s.Logger.Warn("Failed to remove previous avatar", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	user.AvatarURL = url
	return url, nil
}

// Verify confirms the email address owning token. A token works once.
func (s *UserService) Verify(ctx context.Context, token string) error {
	user, err := s.Users.FindByVerificationToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.WithMessage(apperror.ErrNotFound, MsgUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("find verification token: %w", err)
	}
	if err := s.Users.MarkVerified(ctx, user.ID); err != nil {
		return translateUser("mark verified", err)
	}
	return nil
}

// ResendVerification mails the verification link again for an unverified account.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	if s.Mailer == nil {
		return ErrMailerNotConfigured
	}
	if email == "" {
		return apperror.Validation("email", MsgMissingEmailField)
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.WithMessage(apperror.ErrNotFound, MsgUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user.Verified {
		return apperror.Validation("email", MsgAlreadyVerified)
	}

	var token string
	if user.VerificationToken != nil {
		token = *user.VerificationToken
	} else {
		token = uuid.NewString()
		if err := s.Users.SetVerificationToken(ctx, user.ID, token); err != nil {
			return translateUser("set verification token", err)
		}
	}

	if err := s.Mailer.SendVerification(ctx, user.Email, token); err != nil {
		prometheus.RecordMail("failed")
		return fmt.Errorf("send verification: %w", err)
	}
	prometheus.RecordMail("sent")
	return nil
}

// sessionError handles repository errors for the authenticated user. The user
// vanishing mid-request means the session is no longer valid.
func (s *UserService) sessionError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.UnauthorizedBecause(auth.ReasonUnknownUser, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func translateUser(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.WithMessage(apperror.ErrNotFound, MsgUserNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
