package model

import "time"

// Role is a user's access level.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is a customer or admin profile keyed by the auth subject.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Phone       string    `json:"phone,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user has admin access.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Dashboard summarizes store activity for the back-office.
type Dashboard struct {
	OrdersByStatus    map[OrderStatus]int `json:"orders_by_status"`
	TotalOrders       int                 `json:"total_orders"`
	RevenueCents      int64               `json:"revenue_cents"`
	ProductCount      int                 `json:"product_count"`
	LowStockProducts  []Product           `json:"low_stock_products"`
	RecentOrders      []Order             `json:"recent_orders"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
}
