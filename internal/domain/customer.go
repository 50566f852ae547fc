package domain

import "time"

// Customer is the operator's own account holder.
type Customer struct {
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// EndCustomer is the party on whose behalf a task exists, with its
// contact details.
type EndCustomer struct {
	EndCustomerID string    `json:"end_customer_id"`
	CustomerID    string    `json:"customer_id,omitempty"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// User is an agent or admin operating the system.
type User struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // agent, admin
	CreatedAt time.Time `json:"created_at"`
}
