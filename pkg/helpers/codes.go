package helpers

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// GenVerifyCode generates a secure random 6-digit verification code as a zero-padded string
func GenVerifyCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("%06d", n%1000000), nil
}

// GenInvitationCode builds an invitation code of the form LABEL_NNNNNNNN_SUFX,
// where the middle part is 8 random digits and the suffix is derived from the
// creator's id. The label is upper-cased with spaces collapsed to underscores.
func GenInvitationCode(label, creatorID string) (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
	digits := fmt.Sprintf("%08d", n%100000000)

	clean := strings.ToUpper(strings.TrimSpace(label))
	clean = strings.Join(strings.Fields(clean), "_")
	if clean == "" {
		clean = "INVITE"
	}
	suffix := creatorSuffix(creatorID)
	return clean + "_" + digits + "_" + suffix, nil
}

func creatorSuffix(id string) string {
	var out []rune
	for _, r := range strings.ToUpper(id) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
		if len(out) == 4 {
			break
		}
	}
	for len(out) < 4 {
		out = append(out, 'X')
	}
	return string(out)
}
