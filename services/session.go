package services

import (
	"sync"

	"teslacam/models"
)

// Session holds the viewer's selections for one loaded collection: the
// active filter, the selected event, and per event the selected segment
// and camera. It is pruned whenever a new collection is committed.
type Session struct {
	mu              sync.Mutex
	filter          string
	selectedEventID string
	segments        map[string]string
	cameras         map[string]string
}

func NewSession() *Session {
	return &Session{
		filter:   FilterAll,
		segments: make(map[string]string),
		cameras:  make(map[string]string),
	}
}

func (s *Session) SelectedSegment(eventID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.segments[eventID]
	return id, ok
}

func (s *Session) SelectSegment(eventID, segmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[eventID] = segmentID
}

func (s *Session) SelectedCamera(eventID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label, ok := s.cameras[eventID]
	return label, ok
}

func (s *Session) SelectCamera(eventID, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras[eventID] = label
}

func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) SelectedEvent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedEventID
}

func (s *Session) SelectEvent(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedEventID = eventID
}

// Prune drops selections for events missing from c.
func (s *Session) Prune(c *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.segments {
		if !c.Has(id) {
			delete(s.segments, id)
		}
	}
	for id := range s.cameras {
		if !c.Has(id) {
			delete(s.cameras, id)
		}
	}
	if s.selectedEventID != "" && !c.Has(s.selectedEventID) {
		s.selectedEventID = ""
	}
}

// ApplyFilter switches the filter and returns the visible events. The
// selected event moves to the first visible one when it is hidden or unset.
func (s *Session) ApplyFilter(c *Collection, filter string) []*models.Event {
	visible := c.Filtered(filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter

	switch {
	case len(visible) == 0:
		s.selectedEventID = ""
	case s.selectedEventID == "":
		s.selectedEventID = visible[0].ID
	default:
		found := false
		for _, e := range visible {
			if e.ID == s.selectedEventID {
				found = true
				break
			}
		}
		if !found {
			s.selectedEventID = visible[0].ID
		}
	}
	return visible
}
