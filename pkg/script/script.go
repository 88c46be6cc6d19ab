package script

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Role identifies the speaker of a dialogue line.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// DefaultPause is the silence inserted after a line when the script
// does not specify one, in seconds.
const DefaultPause = 0.3

// Line is a single speaker-tagged utterance.
type Line struct {
	Speaker    Role    `json:"speaker"`
	Text       string  `json:"text"`
	PauseAfter float64 `json:"pause_after"`
}

// Parse extracts dialogue lines from raw script text. Each line has the
// form "<role>: <text>"; lines without a recognizable role prefix are
// ignored. Both english and chinese role labels are accepted.
func Parse(content string) []Line {
	var lines []Line
	for _, raw := range strings.Split(strings.TrimSpace(content), "\n") {
		role, text, ok := strings.Cut(raw, ":")
		if !ok {
			continue
		}
		var speaker Role
		switch strings.ToLower(strings.TrimSpace(role)) {
		case "customer", "客戶":
			speaker = RoleCustomer
		case "agent", "客服":
			speaker = RoleAgent
		default:
			continue
		}
		lines = append(lines, Line{
			Speaker:    speaker,
			Text:       strings.TrimSpace(text),
			PauseAfter: DefaultPause,
		})
	}
	return lines
}

// CountByRole returns how many of the given lines belong to the role.
func CountByRole(lines []Line, role Role) int {
	n := 0
	for _, l := range lines {
		if l.Speaker == role {
			n++
		}
	}
	return n
}

// Hash returns a short content fingerprint for a script, used to tie
// stored artifacts back to the script that produced them.
func Hash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:8]
}
