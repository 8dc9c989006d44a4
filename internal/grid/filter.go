package grid

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/user-admin-api/internal/models"
)

// searchText is what a filter query is matched against
func searchText(u *models.User) []string {
	return []string{
		u.Username,
		u.FirstName + " " + u.LastName,
		u.Email,
		u.Department,
	}
}

func matches(query string, u *models.User) bool {
	for _, s := range searchText(u) {
		if fuzzy.MatchNormalizedFold(query, s) {
			return true
		}
	}
	return false
}

// Filter keeps the users matching query, in collection order.
// A blank query keeps everything.
func Filter(users []models.User, query string) []models.User {
	query = strings.TrimSpace(query)
	if query == "" {
		return users
	}
	out := make([]models.User, 0, len(users))
	for i := range users {
		if matches(query, &users[i]) {
			out = append(out, users[i])
		}
	}
	return out
}

// Rank returns the users matching query, closest matches first
func Rank(users []models.User, query string) []models.User {
	query = strings.TrimSpace(query)
	if query == "" || len(users) == 0 {
		return users
	}

	texts := make([][]string, len(users))
	for i := range users {
		texts[i] = searchText(&users[i])
	}

	best := make(map[int]int)
	for k := range texts[0] {
		targets := make([]string, len(users))
		for i := range users {
			targets[i] = texts[i][k]
		}
		for _, r := range fuzzy.RankFindNormalizedFold(query, targets) {
			if d, ok := best[r.OriginalIndex]; !ok || r.Distance < d {
				best[r.OriginalIndex] = r.Distance
			}
		}
	}

	idx := make([]int, 0, len(best))
	for i := range best {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		if best[idx[a]] != best[idx[b]] {
			return best[idx[a]] < best[idx[b]]
		}
		return idx[a] < idx[b]
	})

	out := make([]models.User, len(idx))
	for i, j := range idx {
		out[i] = users[j]
	}
	return out
}
