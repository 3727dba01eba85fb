package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain name", "John Smith", "john-smith"},
		{"vietnamese diacritics", "Nguyễn Văn Đức", "nguyen-van-duc"},
		{"mixed punctuation", "Trần  Thị   Hoa!", "tran-thi-hoa"},
		{"leading and trailing junk", "  --Lê Minh--  ", "le-minh"},
		{"digits preserved", "Học sinh 12A", "hoc-sinh-12a"},
		{"empty input", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}

func TestGenInvitationCode(t *testing.T) {
	code, err := GenInvitationCode("summer trial", "3f9a1b2c-0000-0000-0000-000000000000")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(code, "SUMMER_TRIAL_"), "code %q should carry the label prefix", code)

	rest := strings.TrimPrefix(code, "SUMMER_TRIAL_")
	parts := strings.Split(rest, "_")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 8)
	for _, r := range parts[0] {
		assert.True(t, r >= '0' && r <= '9', "middle segment should be digits, got %q", parts[0])
	}
	assert.Equal(t, "3F9A", parts[1])
}

func TestGenInvitationCodeEmptyLabel(t *testing.T) {
	code, err := GenInvitationCode("", "user-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "INVITE_"))
	assert.True(t, strings.HasSuffix(code, "USER"))
}

func TestGenVerifyCode(t *testing.T) {
	code, err := GenVerifyCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
}
