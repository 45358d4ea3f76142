package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/roomswap-service/internal/domain"
)

// DefaultListLimit applies when a filter carries no explicit limit.
const DefaultListLimit = 50

// PreferenceFilter captures registry lookup parameters.
type PreferenceFilter struct {
	OwnerID           string
	ExcludeOwnerID    string
	AvailableContains string
	ExcludeSynthetic  bool
	// Limit <= 0 means DefaultListLimit; Unbounded disables the cap.
	Limit     int
	Unbounded bool
}

// SwapRequestFilter captures ledger lookup parameters.
type SwapRequestFilter struct {
	OwnerID       string
	RequesterID   string
	ParticipantID string
	PreferenceID  string
	Statuses      []domain.SwapStatus
	Limit         int
	Unbounded     bool
}

// ContainsFold reports whether substr occurs in s ignoring case. It mirrors the ILIKE
// predicate the Postgres store builds with ContainsPattern.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ContainsPattern returns a LIKE pattern matching substr literally anywhere in a value.
func ContainsPattern(substr string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(substr) + "%"
}

// EffectiveLimit resolves the row cap for a listing.
func EffectiveLimit(limit int, unbounded bool) int {
	if unbounded {
		return 0
	}
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// HasStatus reports whether status is accepted by the filter's status list.
func (f SwapRequestFilter) HasStatus(status domain.SwapStatus) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

type clauseBuilder struct {
	clauses []string
	args    []any
}

func (b *clauseBuilder) add(format string, arg any) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(format, len(b.args)))
}

func (b *clauseBuilder) where() string {
	if len(b.clauses) == 0 {
		return "1=1"
	}
	return strings.Join(b.clauses, " AND ")
}

func limitClause(limit int, unbounded bool) string {
	if n := EffectiveLimit(limit, unbounded); n > 0 {
		return fmt.Sprintf(" LIMIT %d", n)
	}
	return ""
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
