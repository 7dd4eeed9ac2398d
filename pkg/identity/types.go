package identity

// BranchType classifies a branch by its function within a company.
type BranchType string

const (
	BranchTypeHeadquarters BranchType = "headquarters"
	BranchTypeBranch       BranchType = "branch"
	BranchTypeWarehouse    BranchType = "warehouse"
	BranchTypeStore        BranchType = "store"
)

// Status represents an entity's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// UserPayload is the wire-format user document returned by the auth
// service at login. Nested structure is preserved as received; use
// Normalize to obtain the engine's flattened entities.
type UserPayload struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	CompanyIDDefault string          `json:"companyIdDefault"`
	BranchIDDefault string           `json:"branchIdDefault,omitempty"`
	Companies       []CompanyPayload `json:"companies"`
}

// CompanyPayload is the wire-format company entry inside a user payload.
type CompanyPayload struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Status    string          `json:"status,omitempty"`
	IsDefault Flag            `json:"isDefault,omitempty"`
	Branches  []BranchPayload `json:"branches,omitempty"`
	Roles     []RolePayload   `json:"roles,omitempty"`
}

// BranchPayload is the wire-format branch entry inside a company.
type BranchPayload struct {
	ID       string                 `json:"id"`
	Code     string                 `json:"code"`
	Name     string                 `json:"name"`
	Type     string                 `json:"type,omitempty"`
	Address  map[string]interface{} `json:"address,omitempty"`
	Contact  map[string]interface{} `json:"contact,omitempty"`
	Settings map[string]interface{} `json:"settings,omitempty"`
}

// RolePayload is the wire-format role entry inside a company. Any nested
// permission detail is intentionally ignored by the adapter; permissions
// are resolved separately per (user, branch).
type RolePayload struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsSystem    Flag   `json:"isSystem,omitempty"`
}

// User is the engine's normalized view of an authenticated user.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	CompanyIDDefault string    `json:"companyIdDefault"`
	CurrentBranchID  string    `json:"currentBranchId,omitempty"`
	Companies        []Company `json:"companies"`
	Branches         []Branch  `json:"branches"`
	Roles            []Role    `json:"roles"`
}

// Company is a tenant-like entity the user has access to.
type Company struct {
	ID        string   `json:"id"`
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	IsDefault bool     `json:"isDefault"`
	Branches  []Branch `json:"branches"`
	Roles     []Role   `json:"roles"`
}

// Branch is a sub-unit of a company. Branches are never shared across
// companies; CompanyID is always the owning company.
type Branch struct {
	ID        string                 `json:"id"`
	Code      string                 `json:"code"`
	Name      string                 `json:"name"`
	Type      BranchType             `json:"type"`
	CompanyID string                 `json:"companyId"`
	Address   map[string]interface{} `json:"address,omitempty"`
	Contact   map[string]interface{} `json:"contact,omitempty"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
}

// Role is the flattened role shape carried on the normalized user.
type Role struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsSystem    bool   `json:"isSystem"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// CompanyByID returns the company with the given id, or nil.
func (u *User) CompanyByID(id string) *Company {
	for i := range u.Companies {
		if u.Companies[i].ID == id {
			return &u.Companies[i]
		}
	}
	return nil
}
