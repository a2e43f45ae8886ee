package mfa

import (
	"strings"

	"github.com/shandysiswandi/credbite/internal/pkg/hash"
	"github.com/shandysiswandi/credbite/internal/pkg/otp"
)

const (
	// BackupCodeCount is how many codes one generation yields.
	BackupCodeCount = 10
	// BackupCodeDigits is the length of each code.
	BackupCodeDigits = 8

	backupHashSeparator = ","
)

// GenerateBackupCodes returns BackupCodeCount distinct numeric codes together
// with their stored form: SHA-256 base64 hashes joined by ",".
func GenerateBackupCodes() (codes []string, joinedHash string, err error) {
	seen := make(map[string]struct{}, BackupCodeCount)
	hashes := make([]string, 0, BackupCodeCount)

	for len(codes) < BackupCodeCount {
		code, err := otp.NumericCode(BackupCodeDigits)
		if err != nil {
			return nil, "", err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
		hashes = append(hashes, hash.Sum(code))
	}

	return codes, strings.Join(hashes, backupHashSeparator), nil
}

// RedeemBackupCode checks code against joinedHash. On a match it returns the
// remaining hashes with the used one removed.
func RedeemBackupCode(joinedHash, code string) (remaining string, ok bool) {
	if joinedHash == "" || code == "" {
		return joinedHash, false
	}

	target := hash.Sum(code)
	hashes := strings.Split(joinedHash, backupHashSeparator)
	for i, h := range hashes {
		if h == target {
			rest := append(hashes[:i:i], hashes[i+1:]...)
			return strings.Join(rest, backupHashSeparator), true
		}
	}
	return joinedHash, false
}

// CountBackupCodes returns how many unused codes joinedHash holds.
func CountBackupCodes(joinedHash string) int {
	if joinedHash == "" {
		return 0
	}
	return len(strings.Split(joinedHash, backupHashSeparator))
}
