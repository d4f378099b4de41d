package security

import "golang.org/x/crypto/bcrypt"

// HashCost is the bcrypt work factor; tests lower it.
var HashCost = 12

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), HashCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
