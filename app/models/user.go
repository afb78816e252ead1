package models

import "time"

type Account struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Username     string     `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	FullName     string     `json:"full_name" gorm:"not null"`
	Role         Role       `json:"role" gorm:"not null"`
	Gender       Gender     `json:"gender" gorm:"not null"`
	Phone        string     `json:"phone,omitempty" gorm:"type:varchar(20)"`
	Address      string     `json:"address,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	Subjects     []*Subject `json:"subjects,omitempty" gorm:"many2many:enrollments;"`
}

// SubjectNames returns the names of the loaded subjects in order.
func (a *Account) SubjectNames() []string {
	names := make([]string, 0, len(a.Subjects))
	for _, s := range a.Subjects {
		names = append(names, s.Name)
	}
	return names
}

// Actor is the authenticated principal of a single request. It is built by the
// auth middleware and passed explicitly into every service call.
type Actor struct {
	ID       string
	Username string
	FullName string
	Role     Role
	TokenID  string
}

func (a *Actor) Is(role Role) bool {
	return a != nil && a.Role == role
}

func (a *Actor) IsAdmin() bool { return a.Is(RoleAdmin) }

// ActorFromAccount builds the request principal for acc.
func ActorFromAccount(acc *Account, tokenID string) *Actor {
	return &Actor{
		ID:       acc.ID,
		Username: acc.Username,
		FullName: acc.FullName,
		Role:     acc.Role,
		TokenID:  tokenID,
	}
}
