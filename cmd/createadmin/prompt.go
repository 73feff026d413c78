package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"authapi_backend/internal/services/dto"
	"authapi_backend/internal/validator"
	"authapi_backend/pkg/apperrors"
)

// AdminCreator - часть AuthService, нужная этой команде
type AdminCreator interface {
	CreateAdmin(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
}

type prompter struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
	validator    *validator.Validator
	creator      AdminCreator
	retryDelay   time.Duration
}

// run спрашивает данные, пока администратор не будет создан.
// Конец ввода и отмена контекста прерывают цикл.
func (p *prompter) run(ctx context.Context) error {
	for {
		admin, err := p.attempt(ctx)
		if err == nil {
			fmt.Fprintf(p.out, "[*] New admin created successfully: %s (%s)\n", admin.Username, admin.ID)
			return nil
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return err
		}

		fmt.Fprintf(p.out, "Error: %s\n", describe(err))
		fmt.Fprintln(p.out, "Retrying...")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retryDelay):
		}
	}
}

func (p *prompter) attempt(ctx context.Context) (*dto.UserResponse, error) {
	var req dto.RegisterRequest
	var err error

	if req.FullName, err = p.readLine("Enter full name: "); err != nil {
		return nil, err
	}
	if req.Username, err = p.readLine("Enter username: "); err != nil {
		return nil, err
	}
	if req.Email, err = p.readLine("Enter email: "); err != nil {
		return nil, err
	}

	fmt.Fprint(p.out, "Enter password: ")
	pw, err := p.readPassword()
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, err
	}
	req.Password = string(pw)

	req.Normalize()
	if err := p.validator.Validate(&req); err != nil {
		return nil, err
	}

	return p.creator.CreateAdmin(ctx, &req)
}

func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// describe - текст ошибки для оператора
func describe(err error) string {
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		parts := make([]string, 0, len(vErr.Errors))
		for field, msg := range vErr.Errors {
			parts = append(parts, field+": "+msg)
		}
		return strings.Join(parts, "; ")
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
