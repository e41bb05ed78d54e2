package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// CodePrefix identifies what a generated code belongs to
type CodePrefix string

const (
	UserCode  CodePrefix = "MMU"
	AgentCode CodePrefix = "MMA"
)

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// randomCode returns n uppercase alphanumeric characters
func randomCode(n int) (string, error) {
	randomBytes := make([]byte, (n*5+7)/8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	code := codeEncoding.EncodeToString(randomBytes)
	code = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToUpper(code))
	if len(code) < n {
		code += strings.Repeat("0", n-len(code))
	}
	return code[:n], nil
}

// GenerateReferralCode generates a referral code for the given prefix.
// Format: {PREFIX}-{RANDOM} where RANDOM is 6 alphanumeric characters,
// e.g. MMU-ABC123, MMA-XYZ789
func GenerateReferralCode(prefix CodePrefix) (string, error) {
	code, err := randomCode(6)
	if err != nil {
		return "", err
	}
	return string(prefix) + "-" + code, nil
}

// GenerateRedemptionCode returns an 8 character code a customer shows at
// the counter
func GenerateRedemptionCode() (string, error) {
	return randomCode(8)
}

// NormalizeCode uppercases and trims a user supplied code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
