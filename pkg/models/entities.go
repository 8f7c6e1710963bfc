package models

// RelationshipPartner marks contacts that are categorically excluded from
// automation execution.
const RelationshipPartner = "partner"

// User is the acting-user snapshot loaded at run start.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Contact is the contact snapshot the engine reads; it never writes back.
type Contact struct {
	ID           string `json:"id"`
	WorkspaceID  string `json:"workspace_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Stage        string `json:"stage"`
	Type         string `json:"type"`
	Source       string `json:"source"`
	Relationship string `json:"relationship"`
}

// Listing is the listing snapshot the engine reads.
type Listing struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Address     string `json:"address"`
	Status      string `json:"status"`
}
