package order

import "time"

// Order is a company order placed through the mini app, assigned to a manager.
// FullData keeps the entire request payload as submitted.
type Order struct {
	ID          string         `json:"id"`
	CompanyName string         `json:"company_name"`
	CompanyBIN  string         `json:"company_bin"`
	ManagerID   string         `json:"manager_id"`
	FullData    map[string]any `json:"full_data"`
	CreatedAt   time.Time      `json:"created_at"`
}
