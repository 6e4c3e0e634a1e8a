package models

import (
	"strings"
	"time"
)

// SocialAccount is a social network account known to the Army of Awesome
// tool. Username is the natural key; the two flags are independent.
type SocialAccount struct {
	// ID is the relational key; accounts stored in MongoDB have none.
	ID        uint      `json:"id,omitempty" gorm:"primaryKey" bson:"-"`
	Username  string    `json:"username" gorm:"uniqueIndex;size:255;not null" bson:"username"`
	Banned    bool      `json:"banned" gorm:"not null;default:false" bson:"banned"`
	Ignored   bool      `json:"ignored" gorm:"not null;default:false" bson:"ignored"`
	CreatedAt time.Time `json:"-" bson:"created_at"`
	UpdatedAt time.Time `json:"-" bson:"updated_at"`
}

const (
	MsgUsernameNotProvided  = "Username not provided."
	MsgUsernamesNotProvided = "Usernames not provided."
)

// NormalizeUsername strips a single leading "@" handle marker.
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(username, "@")
}

// AccountRequest is the body of ban and ignore requests.
type AccountRequest struct {
	Username string `json:"username"`
}

func (r *AccountRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if NormalizeUsername(r.Username) == "" {
		errs["username"] = MsgUsernameNotProvided
	}

	return errs
}

// AccountsRequest is the body of unban and unignore requests.
type AccountsRequest struct {
	Usernames []string `json:"usernames"`
}

func (r *AccountsRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if len(r.Usernames) == 0 {
		errs["usernames"] = MsgUsernamesNotProvided
	}

	return errs
}
