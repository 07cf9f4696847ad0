// Package extract pulls the generated room code out of page state.
package extract

import (
	"regexp"
	"strings"
)

// CodeLength is the number of characters in a room code.
const CodeLength = 4

// Alphabet is the set of characters the game server draws room codes from.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var (
	refMarker = regexp.MustCompile(`\[ref=\w+\]`)
	candidate = regexp.MustCompile(`\b([A-Z0-9]{4})\b`)
)

// excluded holds page-chrome words that look like codes.
var excluded = map[string]bool{
	"CLIC": true,
	"TRAI": true,
	"HTTP": true,
	"ROOM": true,
	"CODE": true,
}

// RoomCode scans snapshot text for the first 4-character uppercase
// alphanumeric token that is not page chrome. Ref markers are removed first
// so element identifiers never qualify.
func RoomCode(text string) (string, bool) {
	clean := refMarker.ReplaceAllString(text, "")
	for _, m := range candidate.FindAllStringSubmatch(clean, -1) {
		tok := m[1]
		if excluded[tok] {
			continue
		}
		return tok, true
	}
	return "", false
}

// RoomCodeFromPath returns the code from a room page path such as
// "/room/K7QP". The code must be drawn from Alphabet.
func RoomCodeFromPath(path string) (string, bool) {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, `"'`)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	rest, ok := strings.CutPrefix(path, "/room/")
	if !ok {
		return "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	if !ValidCode(rest) {
		return "", false
	}
	return rest, true
}

// ValidCode reports whether code has the server's length and alphabet.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
