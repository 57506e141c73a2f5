package formation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
)

// MaxSequence is the highest two-digit sequence a class prefix can hold.
const MaxSequence = 99

// allocation is a candidate final group id.
type allocation struct {
	Prefix string
	Seq    int
}

func (a allocation) ID() string { return FormatGroupID(a.Prefix, a.Seq) }

// FormatGroupID renders prefix + two-digit sequence.
func FormatGroupID(prefix string, seq int) string {
	return fmt.Sprintf("%s%02d", prefix, seq)
}

// AllocateGroupID returns the next free group id for the leader's class.
// Nothing is reserved; the unique index on final_groups.group_id decides
// who gets it.
func (s *Service) AllocateGroupID(ctx context.Context, leaderID string) (string, error) {
	a, err := s.allocate(ctx, leaderID)
	if err != nil {
		return "", err
	}
	return a.ID(), nil
}

func (s *Service) allocate(ctx context.Context, leaderID string) (allocation, error) {
	leader := normalize.Enrollment(leaderID)
	if leader == "" {
		return allocation{}, apperr.BadRequest("leader_id is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.allocate")
	defer cancel()

	st, err := s.directory.GetByEnrollment(ctx, leader)
	if err != nil {
		if errors.Is(err, studentstore.ErrNotFound) {
			return allocation{}, apperr.NotFound("leader not found in student directory")
		}
		return allocation{}, apperr.Internal("failed to look up leader", err)
	}
	prefix := normalize.ClassPrefix(st.Class)
	if prefix == "" {
		return allocation{}, apperr.NotFound("leader has no class on record")
	}

	existing, err := s.finals.GroupIDsWithPrefix(ctx, prefix)
	if err != nil {
		return allocation{}, apperr.Internal("failed to scan allocated group ids", err)
	}
	seq, ok := NextSequence(prefix, existing)
	if !ok {
		return allocation{}, apperr.Conflict("class prefix exhausted").
			WithDetails(map[string]any{"class_prefix": prefix})
	}
	return allocation{Prefix: prefix, Seq: seq}, nil
}

// NextSequence returns the smallest sequence in 1..MaxSequence not used by
// existing. Ids that are not prefix plus exactly two digits are ignored.
func NextSequence(prefix string, existing []string) (int, bool) {
	used := make([]int, 0, len(existing))
	for _, id := range existing {
		suffix, ok := strings.CutPrefix(id, prefix)
		if !ok || len(suffix) != 2 {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 1 {
			continue
		}
		used = append(used, n)
	}
	sort.Ints(used)

	next := 1
	for _, n := range used {
		if n > next {
			break
		}
		if n == next {
			next++
		}
	}
	if next > MaxSequence {
		return 0, false
	}
	return next, true
}
