package scan

import "sync"

// Selection is the manual click-to-select mode: the user toggles
// individual TikTok video links and validates the set.
type Selection struct {
	mu     sync.Mutex
	active bool
	order  []string
	picked map[string]bool
}

func NewSelection() *Selection {
	return &Selection{picked: make(map[string]bool)}
}

// Start enters selection mode with an empty set
func (s *Selection) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.clear()
}

func (s *Selection) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Toggle flips href in or out of the set. It reports the new state and
// whether the toggle applied at all: outside selection mode, or for a
// link that is not a TikTok video, nothing changes.
func (s *Selection) Toggle(href string) (selected, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || !tiktokVideoOnly.MatchString(href) {
		return false, false
	}
	if s.picked[href] {
		delete(s.picked, href)
		for i, v := range s.order {
			if v == href {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false, true
	}
	s.picked[href] = true
	s.order = append(s.order, href)
	return true, true
}

func (s *Selection) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Validate returns the selected links in toggle order and leaves
// selection mode.
func (s *Selection) Validate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := append([]string(nil), s.order...)
	s.active = false
	s.clear()
	return links
}

// Cancel leaves selection mode, discarding the set
func (s *Selection) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.clear()
}

func (s *Selection) clear() {
	s.order = nil
	s.picked = make(map[string]bool)
}
