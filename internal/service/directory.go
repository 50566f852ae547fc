package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskdesk/internal/domain"
)

// CreateUserInput carries the fields for a new user.
type CreateUserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateUser registers an agent or admin.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	role := in.Role
	if role == "" {
		role = "agent"
	}
	if role != "agent" && role != "admin" {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}

	user := &domain.User{
		UserID:    newID("usr"),
		Name:      strings.TrimSpace(in.Name),
		Email:     in.Email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// GetUsers retrieves user profiles in bulk. Unknown IDs are skipped.
func (s *Service) GetUsers(ctx context.Context, userIDs []string) ([]domain.User, error) {
	users, err := s.store.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// CreateCustomer registers an account holder.
func (s *Service) CreateCustomer(ctx context.Context, name string) (*domain.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}

	customer := &domain.Customer{
		CustomerID: newID("cus"),
		Name:       strings.TrimSpace(name),
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID.
func (s *Service) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, ErrNotFound
	}
	return customer, nil
}

// CreateEndCustomerInput carries the fields for a new end customer.
type CreateEndCustomerInput struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

// CreateEndCustomer registers the party a task is worked for, with its
// contact details.
func (s *Service) CreateEndCustomer(ctx context.Context, in CreateEndCustomerInput) (*domain.EndCustomer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if in.CustomerID != "" {
		customer, err := s.store.GetCustomer(ctx, in.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get customer: %w", err)
		}
		if customer == nil {
			return nil, fmt.Errorf("%w: unknown customer %q", ErrValidation, in.CustomerID)
		}
	}

	ec := &domain.EndCustomer{
		EndCustomerID: newID("ecu"),
		CustomerID:    in.CustomerID,
		Name:          strings.TrimSpace(in.Name),
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		CreatedAt:     time.Now(),
	}
	if err := s.store.CreateEndCustomer(ctx, ec); err != nil {
		return nil, fmt.Errorf("failed to create end customer: %w", err)
	}
	return ec, nil
}

// GetEndCustomer retrieves an end customer by ID.
func (s *Service) GetEndCustomer(ctx context.Context, endCustomerID string) (*domain.EndCustomer, error) {
	ec, err := s.store.GetEndCustomer(ctx, endCustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get end customer: %w", err)
	}
	if ec == nil {
		return nil, ErrNotFound
	}
	return ec, nil
}
