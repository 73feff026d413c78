package services

import (
	"authapi_backend/internal/auth"
	"authapi_backend/internal/metrics"
	"authapi_backend/internal/repositories"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	UserService UserService
	AuthService AuthService
}

// Dependencies - то, из чего собираются сервисы
type Dependencies struct {
	UserRepo repositories.UserRepository
	Sessions *auth.SessionIssuer
	Links    auth.LinkBuilder
	Notifier Notifier
	Metrics  metrics.MetricsCollector
}

func NewServiceContainer(deps Dependencies) *ServiceContainer {
	return &ServiceContainer{
		UserService: NewUserService(deps.UserRepo),
		AuthService: NewAuthService(deps.UserRepo, deps.Sessions, deps.Links, deps.Notifier, deps.Metrics),
	}
}
