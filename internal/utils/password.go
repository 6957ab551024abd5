package utils

import "golang.org/x/crypto/bcrypt"

// HashSecret returns the bcrypt hash of a secret using the given cost. It is
// used for login passwords and for at-rest hashing of refresh-token and API
// key secrets, so a database read alone never yields a usable credential.
func HashSecret(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret compares a bcrypt hash and a plain secret. bcrypt's own
// comparison is constant time; never replace this with a string equality.
func VerifySecret(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
