package identity

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"plain", "general", "general"},
		{"uppercase", "General", "general"},
		{"spaces become hyphens", "Team Chat", "team-chat"},
		{"special characters removed", "Team Chat!", "team-chat"},
		{"diacritics stripped", "Café Room", "cafe-room"},
		{"whitespace runs collapse", "a   b\t c", "a-b-c"},
		{"leading and trailing whitespace", "  general  ", "general"},
		{"hyphen preserved", "go-nuts", "go-nuts"},
		{"only special characters", "!!!", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestSlugifyCharacterSet(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9_-]*$`)
	inputs := []string{
		"Hello, Wörld!", "çà été", "room #42", "TABS\tand\nnewlines", "ñ", "---",
	}
	for _, in := range inputs {
		slug := Slugify(in)
		assert.Truef(t, valid.MatchString(slug), "Slugify(%q) = %q contains invalid characters", in, slug)
		assert.False(t, strings.HasPrefix(slug, "-") && strings.Contains(in, " "), "no leading hyphen from whitespace")
	}
}

func TestResolveDefaults(t *testing.T) {
	id, err := Resolve("Alice", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoom, id.Room)
	assert.Equal(t, "Alice", id.Nickname)

	id, err = Resolve("Alice", "!!!")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoom, id.Room, "room that slugifies to nothing falls back to the default")

	id, err = Resolve("Alice", "Team Chat!")
	require.NoError(t, err)
	assert.Equal(t, "team-chat", id.Room)
}

func TestResolveGuestNickname(t *testing.T) {
	id, err := Resolve("", "general")
	require.NoError(t, err)
	assert.Regexp(t, `^Guest\d{1,3}$`, id.Nickname)
	assert.True(t, id.Guest())

	id, err = Resolve("Alice", "general")
	require.NoError(t, err)
	assert.False(t, id.Guest())

	// guest-style names chosen by the user are also not persisted
	id, err = Resolve("MyGuestName", "general")
	require.NoError(t, err)
	assert.True(t, id.Guest())
}

func TestResolveReservedNickname(t *testing.T) {
	for _, nickname := range []string{"server", "Server", "SERVER", "sErVeR"} {
		_, err := Resolve(nickname, "general")
		assert.ErrorIs(t, err, ErrReservedNickname, "nickname %q must be rejected", nickname)
	}

	_, err := Resolve("Serverx", "general")
	assert.NoError(t, err, "only the exact word is reserved")
}

func TestResolveColor(t *testing.T) {
	id, err := Resolve("Alice", "general")
	require.NoError(t, err)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, id.Color)
}

func TestCheckAvailable(t *testing.T) {
	taken := []string{"Alice", "bob"}

	assert.NoError(t, CheckAvailable("Carol", taken, MatchCaseSensitive))
	assert.ErrorIs(t, CheckAvailable("Alice", taken, MatchCaseSensitive), ErrNicknameTaken)
	assert.NoError(t, CheckAvailable("alice", taken, MatchCaseSensitive),
		"case-sensitive mode matches observed behavior")

	assert.ErrorIs(t, CheckAvailable("alice", taken, MatchCaseInsensitive), ErrNicknameTaken)
	assert.ErrorIs(t, CheckAvailable("BOB", taken, MatchCaseInsensitive), ErrNicknameTaken)

	assert.NoError(t, CheckAvailable("Alice", nil, MatchCaseSensitive), "empty roster")
}
