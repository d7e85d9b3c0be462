// Package reconcile keeps at most one visible view per (resource, group) pair
// by closing or stepping back the duplicates of a freshly activated view.
package reconcile

import (
	"sort"
)

// View is one open leaf in the host: a pane showing a single resource.
type View struct {
	ID             string `json:"id"`
	Kind           string `json:"kind,omitempty"`
	ResourcePath   string `json:"resource_path"`
	GroupID        string `json:"group_id"`
	ActiveTime     int64  `json:"active_time"`
	Pinned         bool   `json:"pinned"`
	HasBackHistory bool   `json:"has_back_history"`
}

// Case names which branch of the policy produced a plan.
type Case string

const (
	CaseNone       Case = "none"
	CaseSkipped    Case = "skipped"
	CaseMostRecent Case = "most_recent"
	CaseOldest     Case = "oldest"
	CaseMiddle     Case = "middle"
)

// Plan is the set of host commands a reconciliation pass decided on.
// Commands run in order: Close, Back, Activate.
type Plan struct {
	Case     Case     `json:"case"`
	Close    []string `json:"close,omitempty"`
	Back     string   `json:"back,omitempty"`
	Activate string   `json:"activate,omitempty"`
	Focus    bool     `json:"focus,omitempty"`
}

// Empty reports whether the plan issues no commands.
func (p Plan) Empty() bool {
	return len(p.Close) == 0 && p.Back == "" && p.Activate == ""
}

// Duplicates returns the views other than activated showing the same
// resource in the same group, in the order supplied.
func Duplicates(activated View, views []View) []View {
	var out []View
	for _, v := range views {
		if v.ID == activated.ID {
			continue
		}
		if v.ResourcePath == activated.ResourcePath && v.GroupID == activated.GroupID {
			out = append(out, v)
		}
	}
	return out
}

// Decide computes the plan for one activation. It never mutates its inputs.
//
// An activated view without a resource (an empty leaf) is skipped outright.
func Decide(activated View, views []View) Plan {
	if activated.ResourcePath == "" {
		return Plan{Case: CaseSkipped}
	}
	dups := Duplicates(activated, views)
	if len(dups) == 0 {
		return Plan{Case: CaseNone}
	}

	candidates := orderCandidates(activated, views, dups)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ActiveTime > candidates[j].ActiveTime
	})
	mostRecent := candidates[0]
	oldest := candidates[len(candidates)-1]

	switch {
	case activated.ID == mostRecent.ID:
		return Plan{Case: CaseMostRecent, Close: unpinned(dups)}
	case activated.ID == oldest.ID:
		return Plan{Case: CaseOldest, Close: unpinned(dups), Activate: activated.ID, Focus: true}
	}

	p := Plan{Case: CaseMiddle, Activate: mostRecent.ID, Focus: true}
	switch {
	case activated.HasBackHistory:
		p.Back = activated.ID
	case !activated.Pinned:
		p.Close = []string{activated.ID}
	}
	return p
}

// orderCandidates lists the activated view and its duplicates in the order
// views were supplied, so the stable sort breaks ActiveTime ties by that order.
// The activated snapshot replaces any stored copy and leads when absent.
func orderCandidates(activated View, views, dups []View) []View {
	out := make([]View, 0, len(dups)+1)
	found := false
	for _, v := range views {
		switch {
		case v.ID == activated.ID:
			if !found {
				out = append(out, activated)
				found = true
			}
		case v.ResourcePath == activated.ResourcePath && v.GroupID == activated.GroupID:
			out = append(out, v)
		}
	}
	if !found {
		out = append([]View{activated}, out...)
	}
	return out
}

func unpinned(views []View) []string {
	var ids []string
	for _, v := range views {
		if !v.Pinned {
			ids = append(ids, v.ID)
		}
	}
	return ids
}
