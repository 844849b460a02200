package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// New returns a random row id.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s parses as a uuid.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ReferencePadding is the width of the sequence part of a reference number.
const ReferencePadding = 6

// FormatReference returns a reference like "IBT-KLA-000001".
func FormatReference(prefix, scope string, seq int) string {
	return fmt.Sprintf("%s-%s-%0*d", prefix, ScopeCode(scope), ReferencePadding, seq)
}

// ParseReference parses "IBT-KLA-000001" into prefix, scope and sequence.
func ParseReference(ref string) (prefix, scope string, seq int, err error) {
	first := strings.Index(ref, "-")
	last := strings.LastIndex(ref, "-")
	if first <= 0 || last <= first+1 || last == len(ref)-1 {
		return "", "", 0, fmt.Errorf("invalid reference format: %q", ref)
	}

	seq, err = strconv.Atoi(ref[last+1:])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid sequence in reference %q: %w", ref, err)
	}
	return ref[:first], ref[first+1 : last], seq, nil
}

// ScopeCode upper-cases a branch or scope name and strips characters that
// would make a reference ambiguous.
// "kla main" -> "KLAMAIN"
func ScopeCode(scope string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r == '_' || r == '-':
			return '_'
		}
		return -1
	}, scope)
}

// SequenceName returns the sequence key for a reference scoped to org and branch.
func SequenceName(prefix, orgID, scope string) string {
	return strings.ToLower(prefix) + ":" + orgID + ":" + scope
}
