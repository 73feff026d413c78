package services

import (
	"context"
	"errors"
	"net/http"

	"authapi_backend/internal/auth"
	"authapi_backend/internal/email"
	"authapi_backend/internal/logger"
	"authapi_backend/internal/metrics"
	"authapi_backend/internal/models"
	"authapi_backend/internal/repositories"
	"authapi_backend/internal/services/dto"
	"authapi_backend/pkg/apperrors"
)

// Notifier отправляет письма со ссылками. Реализуется *email.Mailer.
type Notifier interface {
	SendAccountConfirmation(ctx context.Context, to, userName, link string) error
	SendPasswordReset(ctx context.Context, to, userName, link string) error
	SendEmailChange(ctx context.Context, to, userName, link string) error
}

type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	CreateAdmin(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	ConfirmAccount(ctx context.Context, userID, token string) (*dto.UserResponse, error)
	ResendConfirmation(ctx context.Context, userID string) error
	Login(ctx context.Context, req *dto.LoginRequest, surface models.UserRole) (*dto.LoginResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID, token, newPassword string) error
	RefreshSession(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	ChangeEmail(ctx context.Context, userID string, req *dto.ChangeEmailRequest) error
	ConfirmEmailChange(ctx context.Context, userID, token string) (*dto.UserResponse, error)
	VerifySession(token string, requiredRole models.UserRole) (*auth.Claims, error)
}

type AuthServiceImpl struct {
	userRepo repositories.UserRepository
	sessions *auth.SessionIssuer
	links    auth.LinkBuilder
	notifier Notifier
	metrics  metrics.MetricsCollector
}

func NewAuthService(
	userRepo repositories.UserRepository,
	sessions *auth.SessionIssuer,
	links auth.LinkBuilder,
	notifier Notifier,
	collector metrics.MetricsCollector,
) AuthService {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &AuthServiceImpl{
		userRepo: userRepo,
		sessions: sessions,
		links:    links,
		notifier: notifier,
		metrics:  collector,
	}
}

// Register - регистрация нового пользователя
func (s *AuthServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	req.Normalize()

	user, err := s.createUser(ctx, req, models.UserRoleUser)
	if err != nil {
		return nil, err
	}

	link, err := s.links.Build(models.TokenKindConfirmation, user.ID, user.ConfirmationToken)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	// Пользователь уже создан: при ошибке отправки он может запросить письмо повторно
	sendErr := s.notifier.SendAccountConfirmation(ctx, user.Email, user.FullName, link)
	s.metrics.RecordNotification(email.TemplateAccountConfirmation, metrics.Outcome(sendErr))
	if sendErr != nil {
		logger.CtxWithError(ctx, "Failed to send confirmation email", sendErr, "user_id", user.ID)
		return nil, apperrors.ErrNotificationFailed(sendErr).WithDetails(map[string]string{"userId": user.ID})
	}

	logger.CtxInfo(ctx, "User registered", "user_id", user.ID)
	return dto.NewUserResponse(user), nil
}

// CreateAdmin создает подтвержденного администратора без письма
func (s *AuthServiceImpl) CreateAdmin(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	req.Normalize()

	user, err := s.createUser(ctx, req, models.UserRoleAdmin)
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "Admin created", "user_id", user.ID)
	return dto.NewUserResponse(user), nil
}

func (s *AuthServiceImpl) createUser(ctx context.Context, req *dto.RegisterRequest, role models.UserRole) (*models.User, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	// Проверка уникальности
	if err := s.checkAvailable(ctx, req.Username, req.Email, ""); err != nil {
		return nil, err
	}

	user := &models.User{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
	}
	if _, err := auth.SetPassword(user, req.Password); err != nil {
		return nil, mapPasswordError(err)
	}

	if role == models.UserRoleAdmin {
		user.IsAccountConfirmed = true
	} else {
		token, err := auth.GenerateToken()
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		user.ConfirmationToken = token
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			// Гонка с параллельной регистрацией
			if availErr := s.checkAvailable(ctx, req.Username, req.Email, ""); availErr != nil {
				return nil, availErr
			}
			return nil, apperrors.NewConflictError("user", "Username or email is already in use")
		}
		return nil, apperrors.InternalError(err)
	}

	s.metrics.RecordRegistration()
	return user, nil
}

// checkAvailable returns a conflict for the first taken identifier.
func (s *AuthServiceImpl) checkAvailable(ctx context.Context, username, email, excludeID string) error {
	if email != "" {
		taken, err := s.userRepo.ExistsByEmail(ctx, email, excludeID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		if taken {
			return apperrors.ErrEmailTaken
		}
	}
	if username != "" {
		taken, err := s.userRepo.ExistsByUsername(ctx, username, excludeID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		if taken {
			return apperrors.ErrUsernameTaken
		}
	}
	return nil
}

// ConfirmAccount проверяет токен из письма и подтверждает аккаунт
func (s *AuthServiceImpl) ConfirmAccount(ctx context.Context, userID, token string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.metrics.RecordTokenConsumption(string(models.TokenKindConfirmation), metrics.OutcomeFailure)
			return nil, apperrors.ErrTokenMismatch(http.StatusBadRequest)
		}
		return nil, apperrors.InternalError(err)
	}

	if user.IsAccountConfirmed {
		return nil, apperrors.ErrAlreadyInState("user", "Account is already confirmed", http.StatusBadRequest)
	}

	err = s.userRepo.ConfirmAccount(ctx, userID, token)
	s.metrics.RecordTokenConsumption(string(models.TokenKindConfirmation), metrics.Outcome(err))
	if err != nil {
		if errors.Is(err, repositories.ErrTokenMismatch) {
			return nil, apperrors.ErrTokenMismatch(http.StatusBadRequest)
		}
		return nil, apperrors.InternalError(err)
	}

	user, err = s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Account confirmed", "user_id", userID)
	return dto.NewUserResponse(user), nil
}

// ResendConfirmation выдает новый токен подтверждения, старый перестает работать
func (s *AuthServiceImpl) ResendConfirmation(ctx context.Context, userID string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsAccountConfirmed {
		return apperrors.ErrAlreadyInState("user", "Account is already confirmed", http.StatusConflict)
	}

	link, err := s.issueToken(ctx, user.ID, models.TokenKindConfirmation)
	if err != nil {
		return err
	}

	sendErr := s.notifier.SendAccountConfirmation(ctx, user.Email, user.FullName, link)
	return s.notificationResult(ctx, email.TemplateAccountConfirmation, user.ID, sendErr)
}

// Login - вход пользователя или администратора. surface задает, какая роль ожидается.
func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest, surface models.UserRole) (*dto.LoginResponse, error) {
	resp, err := s.login(ctx, req, surface)
	s.metrics.RecordLogin(string(surface), metrics.Outcome(err))
	return resp, err
}

func (s *AuthServiceImpl) login(ctx context.Context, req *dto.LoginRequest, surface models.UserRole) (*dto.LoginResponse, error) {
	req.Normalize()
	if req.Username == "" && req.Email == "" {
		return nil, apperrors.ValidationError(map[string]string{
			"username": "A username or email address is required",
		})
	}

	// Поиск пользователя
	user, err := s.userRepo.FindByUsernameOrEmail(ctx, req.Username, req.Email,
		repositories.FieldPassword, repositories.FieldRole)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user", "No user found with the provided email or username")
		}
		return nil, apperrors.InternalError(err)
	}

	switch surface {
	case models.UserRoleAdmin:
		if !user.IsAdmin() {
			return nil, apperrors.ErrNotAnAdmin
		}
	default:
		if user.IsAdmin() {
			return nil, apperrors.ErrAdminLoginSurface
		}
		if !user.IsAccountConfirmed {
			return nil, apperrors.ErrUserNotVerified
		}
	}

	// Проверка пароля
	ok, err := auth.VerifyPassword(user, req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.sessions.Issue(user, surface)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "User logged in", "user_id", user.ID, "surface", surface)

	resp := dto.NewUserResponse(user)
	resp.Authentication = &dto.AuthenticationResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	return &dto.LoginResponse{User: resp}, nil
}

// RequestPasswordReset отправляет ссылку для сброса пароля
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.FindByEmail(ctx, dto.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NewNotFoundError("user", "No user found with the provided email")
		}
		return apperrors.InternalError(err)
	}

	link, err := s.issueToken(ctx, user.ID, models.TokenKindResetPassword)
	if err != nil {
		return err
	}

	sendErr := s.notifier.SendPasswordReset(ctx, user.Email, user.FullName, link)
	return s.notificationResult(ctx, email.TemplatePasswordReset, user.ID, sendErr)
}

// ResetPassword меняет пароль по токену сброса. Активная сессия при этом завершается.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, userID, token, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	user, err := s.findUser(ctx, userID, repositories.FieldPassword)
	if err != nil {
		return err
	}

	if _, err := auth.SetPassword(user, newPassword); err != nil {
		return mapPasswordError(err)
	}

	err = s.userRepo.ResetPassword(ctx, userID, token, user.PasswordHash)
	s.metrics.RecordTokenConsumption(string(models.TokenKindResetPassword), metrics.Outcome(err))
	if err != nil {
		if errors.Is(err, repositories.ErrTokenMismatch) {
			return apperrors.ErrTokenMismatch(http.StatusUnauthorized)
		}
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Password reset", "user_id", userID)
	return nil
}

// RefreshSession меняет refresh-токен на новую пару. Каждый refresh-токен используется один раз.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error) {
	resp, err := s.refreshSession(ctx, req)
	s.metrics.RecordSessionRotation(metrics.Outcome(err))
	return resp, err
}

func (s *AuthServiceImpl) refreshSession(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error) {
	claims, err := s.sessions.ParseRefresh(req.RefreshToken)
	if err != nil || claims.UserID != req.UserID {
		return nil, apperrors.ErrRefreshTokenInvalid
	}

	user, err := s.userRepo.FindByID(ctx, req.UserID, repositories.FieldRole)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrRefreshTokenInvalid
		}
		return nil, apperrors.InternalError(err)
	}

	// Роль могла измениться после выдачи токена
	if claims.Role != user.Role {
		return nil, apperrors.ErrRefreshTokenInvalid
	}

	pair, err := s.sessions.Issue(user, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.userRepo.RotateRefreshToken(ctx, user.ID, req.RefreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, repositories.ErrTokenMismatch) {
			logger.CtxWarn(ctx, "Refresh token reuse or mismatch", "user_id", user.ID)
			return nil, apperrors.ErrRefreshTokenInvalid
		}
		return nil, apperrors.InternalError(err)
	}

	return &dto.RefreshTokenResponse{
		NewAccessToken:  pair.AccessToken,
		NewRefreshToken: pair.RefreshToken,
	}, nil
}

// ChangePassword - смена пароля авторизованным пользователем
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.findUser(ctx, userID, repositories.FieldPassword)
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(user, req.OldPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !ok {
		return apperrors.ErrWrongOldPassword
	}

	changed, err := auth.SetPassword(user, req.NewPassword)
	if err != nil {
		return mapPasswordError(err)
	}
	if !changed {
		return nil
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, user.PasswordHash); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Password changed", "user_id", userID)
	return nil
}

// ChangeEmail сохраняет новый адрес во временное поле и шлет на него ссылку подтверждения
func (s *AuthServiceImpl) ChangeEmail(ctx context.Context, userID string, req *dto.ChangeEmailRequest) error {
	req.Normalize()

	user, err := s.findUser(ctx, userID, repositories.FieldPassword)
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(user, req.Password)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !ok {
		return apperrors.ErrInvalidCredentials
	}

	if req.Email == user.Email {
		return apperrors.NewConflictError("user", "The new email matches the current one")
	}
	if err := s.checkAvailable(ctx, "", req.Email, userID); err != nil {
		return err
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.userRepo.SetEmailChange(ctx, userID, req.Email, token); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.InternalError(err)
	}

	link, err := s.links.Build(models.TokenKindChangeEmail, userID, token)
	if err != nil {
		return apperrors.InternalError(err)
	}

	sendErr := s.notifier.SendEmailChange(ctx, req.Email, user.FullName, link)
	return s.notificationResult(ctx, email.TemplateEmailChange, userID, sendErr)
}

// ConfirmEmailChange переносит временный адрес в email
func (s *AuthServiceImpl) ConfirmEmailChange(ctx context.Context, userID, token string) (*dto.UserResponse, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}

	err := s.userRepo.ConfirmEmailChange(ctx, userID, token)
	s.metrics.RecordTokenConsumption(string(models.TokenKindChangeEmail), metrics.Outcome(err))
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTokenMismatch):
			return nil, apperrors.ErrTokenMismatch(http.StatusUnauthorized)
		case errors.Is(err, repositories.ErrUserAlreadyExists):
			return nil, apperrors.ErrEmailTaken
		}
		return nil, apperrors.InternalError(err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Email changed", "user_id", userID)
	return dto.NewUserResponse(user), nil
}

// VerifySession проверяет access-токен и роль
func (s *AuthServiceImpl) VerifySession(token string, requiredRole models.UserRole) (*auth.Claims, error) {
	claims, err := s.sessions.VerifyAccess(token, requiredRole)
	if err != nil {
		if errors.Is(err, auth.ErrInsufficientRole) {
			return nil, apperrors.ErrInsufficientRole
		}
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// issueToken stores a fresh single-use token and returns the link carrying it.
func (s *AuthServiceImpl) issueToken(ctx context.Context, userID string, kind models.TokenKind) (string, error) {
	token, err := auth.GenerateToken()
	if err != nil {
		return "", apperrors.InternalError(err)
	}

	if err := s.userRepo.SetToken(ctx, userID, kind, token); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.InternalError(err)
	}

	link, err := s.links.Build(kind, userID, token)
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	return link, nil
}

func (s *AuthServiceImpl) notificationResult(ctx context.Context, template, userID string, sendErr error) error {
	s.metrics.RecordNotification(template, metrics.Outcome(sendErr))
	if sendErr != nil {
		logger.CtxWithError(ctx, "Failed to send email", sendErr, "template", template, "user_id", userID)
		return apperrors.ErrNotificationFailed(sendErr)
	}
	return nil
}

func (s *AuthServiceImpl) findUser(ctx context.Context, userID string, include ...repositories.SensitiveField) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID, include...)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func mapPasswordError(err error) error {
	if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
		return apperrors.ErrWeakPassword
	}
	return apperrors.InternalError(err)
}
