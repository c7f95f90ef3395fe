package analytics

import (
	"sort"
	"time"

	"github.com/eringen/medlog/visits"
)

// Dashboard is the landing-page summary over a user's whole history.
type Dashboard struct {
	TotalVisits       int             `json:"total_visits"`
	VisitsThisMonth   int             `json:"visits_this_month"`
	TopCategories     []CategoryCount `json:"top_categories"`
	RecentVisits      []visits.Visit  `json:"recent_visits"`
	UpcomingFollowUps []visits.Visit  `json:"upcoming_follow_ups"`
}

const dashboardListSize = 3

// Overview summarizes vs as of now: visit totals, the three most used
// categories, the three latest visits and the next three follow-ups after
// today.
func Overview(vs []visits.Visit, now time.Time) *Dashboard {
	sorted := append([]visits.Visit(nil), vs...)
	visits.SortByDateDesc(sorted)

	d := &Dashboard{
		TotalVisits:       len(vs),
		RecentVisits:      []visits.Visit{},
		UpcomingFollowUps: []visits.Visit{},
	}

	monthStart := startOfMonth(now)
	nextMonth := monthStart.AddDate(0, 1, 0)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, v := range vs {
		vd, ok := v.VisitDate()
		if !ok {
			continue
		}
		if local := inLocation(vd, now.Location()); !local.Before(monthStart) && local.Before(nextMonth) {
			d.VisitsThisMonth++
		}
	}

	d.TopCategories = categoryDistribution(vs)
	if len(d.TopCategories) > dashboardListSize {
		d.TopCategories = d.TopCategories[:dashboardListSize]
	}

	for i, v := range sorted {
		if i == dashboardListSize {
			break
		}
		d.RecentVisits = append(d.RecentVisits, v)
	}

	var upcoming []visits.Visit
	for _, v := range sorted {
		fu, ok := v.FollowUp()
		if !ok {
			continue
		}
		if inLocation(fu, now.Location()).After(today) {
			upcoming = append(upcoming, v)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].FollowUpDate < upcoming[j].FollowUpDate
	})
	if len(upcoming) > dashboardListSize {
		upcoming = upcoming[:dashboardListSize]
	}
	d.UpcomingFollowUps = append(d.UpcomingFollowUps, upcoming...)
	return d
}

func inLocation(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}
