package domain

import (
	"regexp"
	"strings"
	"time"
)

// Role is one of the closed set of privilege levels. The zero value is the
// anonymous caller.
type Role string

const (
	RoleAnonymous Role = ""
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

const (
	UsernameMaxLength = 20
	EmailMaxLength    = 254
	NameMaxLength     = 150

	// ReservedUsername collides with the /users/me/ alias.
	ReservedUsername = "me"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

var roleRank = map[Role]int{
	RoleAnonymous: 0,
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// Valid reports whether r is an assignable role (anonymous is not).
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModerator || r == RoleAdmin
}

// AtLeast reports whether r is as privileged as other.
func (r Role) AtLeast(other Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[other]
}

// User is an account in the directory.
type User struct {
	ID        int64     `json:"-"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Bio       string    `json:"bio"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	// ConfirmationCodeHash is the bcrypt hash of the last issued code, empty
	// when no code is outstanding.
	ConfirmationCodeHash string     `json:"-"`
	CodeIssuedAt         time.Time  `json:"-"`
	ConfirmedAt          *time.Time `json:"-"`
}

// HasPendingCode reports whether a confirmation code can currently be exchanged.
func (u *User) HasPendingCode() bool {
	return u.ConfirmationCodeHash != ""
}

// CodeExpired reports whether the outstanding code is older than ttl.
// A non-positive ttl means codes never expire.
func (u *User) CodeExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(u.CodeIssuedAt) > ttl
}

// UserPatch carries optional field updates. Nil fields are left untouched.
type UserPatch struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *Role
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil &&
		p.LastName == nil && p.Bio == nil && p.Role == nil
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername returns a field message when username violates the
// directory constraints, or "" when it is acceptable.
func ValidateUsername(username string) string {
	switch {
	case username == "":
		return "this field is required"
	case len([]rune(username)) > UsernameMaxLength:
		return "ensure this field has no more than 20 characters"
	case strings.EqualFold(username, ReservedUsername):
		return `username "me" is reserved`
	case !usernamePattern.MatchString(username):
		return "enter a valid username: letters, digits and @/./+/-/_ only"
	}
	return ""
}
