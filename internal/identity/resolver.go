// Package identity normalizes room names and nicknames into a valid
// chat identity before any connection is attempted.
package identity

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultRoom is used when the room name is empty after slugification.
const DefaultRoom = "general"

var (
	ErrReservedNickname = errors.New("nickname is not allowed")
	ErrNicknameTaken    = errors.New("nickname is already in use")
)

// MatchMode controls how nicknames are compared against the roster.
type MatchMode string

const (
	MatchCaseSensitive   MatchMode = "case-sensitive"
	MatchCaseInsensitive MatchMode = "case-insensitive"
)

// Identity is a validated (nickname, room) pair plus the display color
// assigned for the session.
type Identity struct {
	Nickname string
	Room     string
	Color    string
}

// Guest reports whether the nickname is a generated guest-style name.
// Guest names are never persisted between sessions.
func (id Identity) Guest() bool {
	return strings.Contains(strings.ToLower(id.Nickname), "guest")
}

var (
	stripMarks   = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Slugify canonicalizes a room name: accents are stripped via Unicode
// decomposition, characters outside word chars/whitespace/hyphen are
// removed, the result is lowercased and whitespace runs become single
// hyphens. An empty input yields an empty slug; callers fall back to
// DefaultRoom.
func Slugify(input string) string {
	slug, _, err := transform.String(stripMarks, input)
	if err != nil {
		slug = input // keep accents rather than fail
	}
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = strings.ToLower(strings.TrimSpace(slug))
	return whitespace.ReplaceAllString(slug, "-")
}

// Resolve produces the identity for a connection attempt. An empty room
// resolves to DefaultRoom, an empty nickname becomes a generated guest
// name, and the reserved nickname "server" (any casing) is rejected.
func Resolve(nickname, room string) (Identity, error) {
	room = Slugify(room)
	if room == "" {
		room = DefaultRoom
	}

	if nickname == "" {
		nickname = fmt.Sprintf("Guest%d", rand.Intn(1000))
	}
	if strings.EqualFold(nickname, "server") {
		return Identity{}, ErrReservedNickname
	}

	return Identity{
		Nickname: nickname,
		Room:     room,
		Color:    RandomColor(),
	}, nil
}

// RandomColor returns a random 24-bit color as "#rrggbb".
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(1<<24))
}

// CheckAvailable compares a nickname against the roster entries of the
// target room and returns ErrNicknameTaken on a match.
func CheckAvailable(nickname string, taken []string, mode MatchMode) error {
	for _, existing := range taken {
		if existing == nickname ||
			(mode == MatchCaseInsensitive && strings.EqualFold(existing, nickname)) {
			return ErrNicknameTaken
		}
	}
	return nil
}
