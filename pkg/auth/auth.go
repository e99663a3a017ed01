package auth

import (
	"crypto/subtle"

	log "github.com/sirupsen/logrus"
)

// unknownUserPassword stands in for the password of a user that does not
// exist. It never authenticates.
const unknownUserPassword = "\x00unknown-user"

// Authenticator decides whether a login is accepted.
type Authenticator interface {
	Authenticate(userID, password string) bool
}

// StaticUsers accepts the user names and passwords it was created with.
type StaticUsers struct {
	passwords map[string]string
}

// NewStaticUsers creates an authenticator from a user name to password map.
func NewStaticUsers(users map[string]string) *StaticUsers {
	passwords := make(map[string]string, len(users))
	for name, password := range users {
		passwords[name] = password
	}
	return &StaticUsers{passwords: passwords}
}

func (s *StaticUsers) Authenticate(userID, password string) bool {
	expected, ok := s.passwords[userID]
	if !ok {
		log.WithField("userId", userID).Debug("auth found no such user")
		expected = unknownUserPassword
	}
	match := subtle.ConstantTimeCompare([]byte(expected), []byte(password)) == 1
	return ok && match
}

// Len returns the number of configured users.
func (s *StaticUsers) Len() int {
	return len(s.passwords)
}
