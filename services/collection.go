package services

import (
	"sort"

	"teslacam/models"
)

// FilterAll selects every category.
const FilterAll = "all"

type Stats struct {
	TotalEvents int `json:"totalEvents"`
	TotalClips  int `json:"totalClips"`
	RecentClips int `json:"RecentClips"`
	SavedClips  int `json:"SavedClips"`
	SentryClips int `json:"SentryClips"`
}

// Collection is the committed result of one load.
type Collection struct {
	Events []*models.Event
	Stats  Stats

	byID map[string]*models.Event
}

// MergeAndSort concatenates event batches into one collection. An id seen
// more than once keeps its last occurrence. Events are ordered newest
// anchor first; events without an anchor follow all others, ordered by id.
func MergeAndSort(batches ...[]*models.Event) *Collection {
	c := &Collection{byID: make(map[string]*models.Event)}

	index := make(map[string]int)
	for _, batch := range batches {
		for _, e := range batch {
			if e == nil {
				continue
			}
			if i, ok := index[e.ID]; ok {
				c.Events[i] = e
				continue
			}
			index[e.ID] = len(c.Events)
			c.Events = append(c.Events, e)
		}
	}
	if c.Events == nil {
		c.Events = []*models.Event{}
	}

	sort.SliceStable(c.Events, func(i, j int) bool {
		a, b := c.Events[i], c.Events[j]
		if !a.Timestamp.IsKnown() && !b.Timestamp.IsKnown() {
			return a.ID < b.ID
		}
		// Descending: swap the arguments of the ascending comparison, then
		// keep unknown anchors last.
		if a.Timestamp.IsKnown() != b.Timestamp.IsKnown() {
			return a.Timestamp.IsKnown()
		}
		return b.Timestamp.Before(a.Timestamp)
	})

	for _, e := range c.Events {
		c.byID[e.ID] = e
	}
	c.Stats = computeStats(c.Events)
	return c
}

func computeStats(events []*models.Event) Stats {
	s := Stats{TotalEvents: len(events)}
	for _, e := range events {
		s.TotalClips += e.ClipCount
		switch e.Category {
		case models.RecentClips:
			s.RecentClips++
		case models.SavedClips:
			s.SavedClips++
		case models.SentryClips:
			s.SentryClips++
		}
	}
	return s
}

func (c *Collection) Event(id string) *models.Event {
	if c == nil {
		return nil
	}
	return c.byID[id]
}

func (c *Collection) Has(id string) bool {
	return c.Event(id) != nil
}

// Filtered returns the events of one category, or all of them for
// FilterAll.
func (c *Collection) Filtered(filter string) []*models.Event {
	if c == nil {
		return []*models.Event{}
	}
	if filter == "" || filter == FilterAll {
		out := make([]*models.Event, len(c.Events))
		copy(out, c.Events)
		return out
	}
	out := []*models.Event{}
	for _, e := range c.Events {
		if string(e.Category) == filter {
			out = append(out, e)
		}
	}
	return out
}

// ValidFilter reports whether filter names FilterAll or a category.
func ValidFilter(filter string) bool {
	if filter == FilterAll {
		return true
	}
	_, ok := models.ParseCategory(filter)
	return ok
}
