package report

import (
	"sort"
	"strings"

	"github.com/teslashibe/go-focus/pkg/session"
)

// GraphTimeLayout formats the x labels.
const GraphTimeLayout = "15:04:05"

// Graph is a step series of a user's timeline: Y is 1 while focused and
// 0 otherwise.
type Graph struct {
	User string   `json:"user"`
	X    []string `json:"x"`
	Y    []int    `json:"y"`
}

// BuildGraph builds the series for user from recs in timestamp order.
// It returns false when the user has no records.
func BuildGraph(user string, recs []session.TimelineRecord) (Graph, bool) {
	user = strings.ToLower(strings.TrimSpace(user))
	g := Graph{User: user, X: []string{}, Y: []int{}}

	mine := make([]session.TimelineRecord, 0, len(recs))
	for _, r := range recs {
		if r.User == user {
			mine = append(mine, r)
		}
	}
	if len(mine) == 0 {
		return g, false
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Timestamp.Before(mine[j].Timestamp) })

	for _, r := range mine {
		g.X = append(g.X, r.Timestamp.Local().Format(GraphTimeLayout))
		y := 0
		if r.Status == session.StatusFocused {
			y = 1
		}
		g.Y = append(g.Y, y)
	}
	return g, true
}
