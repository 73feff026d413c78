package apperrors

import (
	"net/http"
)

/*
Предопределенные ошибки домена учетных записей.
Значения общие для всех запросов, поэтому их не изменяют:
WithDetails и WithError возвращают копию.
*/

// ErrAlreadyInState - фабрика для повторного перехода состояния.
// Код ответа зависит от операции (400 при подтверждении, 409 при повторной отправке).
func ErrAlreadyInState(domain, message string, httpCode int) *AppError {
	return New(CodeAlreadyInState, domain, message, httpCode)
}

// ErrNotificationFailed - письмо не ушло, токен при этом уже сохранен.
func ErrNotificationFailed(err error) *AppError {
	return Wrap(err, CodeNotificationFailed, "notification",
		"The email could not be delivered, please try again later", http.StatusBadGateway)
}

// ErrTokenMismatch - одноразовый токен не совпал или уже использован.
func ErrTokenMismatch(httpCode int) *AppError {
	return New(CodeTokenMismatch, "token", "Invalid or already used token", httpCode)
}

// --- Users ---

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

var ErrUsernameTaken = New(
	CodeConflict,
	"user",
	"Username is already taken",
	http.StatusConflict,
)

var ErrEmailTaken = New(
	CodeConflict,
	"user",
	"Email is already in use",
	http.StatusConflict,
)

var ErrEmptyProfileUpdate = New(
	CodeValidationFailed,
	"validation",
	"Provide a full name or a username to update",
	http.StatusBadRequest,
)

// --- Auth ---

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 6 characters required.",
	http.StatusBadRequest,
)

// ErrInvalidCredentials - неверный пароль при входе или смене email.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid credentials",
	http.StatusUnauthorized,
)

// ErrWrongOldPassword - смена пароля со старым паролем, который не подошел.
var ErrWrongOldPassword = New(
	CodeInvalidCredentials,
	"auth",
	"Old password is incorrect",
	http.StatusBadRequest,
)

var ErrUserNotVerified = New(
	CodeForbidden,
	"auth",
	"Please confirm your account before logging in",
	http.StatusForbidden,
)

// ErrAdminLoginSurface - администратор пытается войти через обычный вход.
var ErrAdminLoginSurface = New(
	CodeForbidden,
	"auth",
	"Admins must use the admin login",
	http.StatusForbidden,
)

// ErrNotAnAdmin - обычный пользователь пытается войти через админский вход.
var ErrNotAnAdmin = New(
	CodeUnauthorized,
	"auth",
	"Only admins can log in here",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInsufficientRole = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrRefreshTokenInvalid = New(
	CodeInvalidToken,
	"auth",
	"Invalid refresh token",
	http.StatusUnauthorized,
)

var ErrTooManyRequests = New(
	CodeRateLimited,
	"request",
	"Too many requests, please try again later",
	http.StatusTooManyRequests,
)

var ErrRouteNotFound = New(
	CodeNotFound,
	"request",
	"Oops! Route not found.",
	http.StatusNotFound,
)
