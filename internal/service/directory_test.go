package service

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndGetUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{Name: "Anna Schmidt", Email: "anna@example.com"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Role != "agent" {
		t.Fatalf("expected default role agent, got %s", user.Role)
	}

	got, err := svc.GetUser(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Name != "Anna Schmidt" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := svc.GetUser(ctx, "usr_nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserInput{Name: "  "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, CreateUserInput{Name: "Max", Role: "superuser"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
}

func TestGetUsersBulkSkipsUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateUser(ctx, CreateUserInput{Name: "Anna"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	second, err := svc.CreateUser(ctx, CreateUserInput{Name: "Ben", Role: "admin"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	users, err := svc.GetUsers(ctx, []string{first.UserID, second.UserID, "usr_ghost"})
	if err != nil {
		t.Fatalf("GetUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestCreateEndCustomerLinkedToCustomer(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, "Hausverwaltung Nord")
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	ec, err := svc.CreateEndCustomer(ctx, CreateEndCustomerInput{
		CustomerID: customer.CustomerID,
		Name:       "Familie Weber",
		Email:      "weber@example.com",
		Phone:      "+49 40 123456",
	})
	if err != nil {
		t.Fatalf("CreateEndCustomer failed: %v", err)
	}

	got, err := svc.GetEndCustomer(ctx, ec.EndCustomerID)
	if err != nil {
		t.Fatalf("GetEndCustomer failed: %v", err)
	}
	if got.CustomerID != customer.CustomerID || got.Email != "weber@example.com" {
		t.Fatalf("unexpected end customer: %+v", got)
	}
}

func TestCreateEndCustomerUnknownCustomerRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateEndCustomer(context.Background(), CreateEndCustomerInput{
		CustomerID: "cus_ghost",
		Name:       "Familie Weber",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.GetCustomer(context.Background(), "cus_nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
