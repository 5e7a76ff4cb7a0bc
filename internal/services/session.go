package services

// weekSession is the shared per-week state the manager metadata orchestrator
// installs on both sub-processors before handing them a week, and clears on
// every exit path so nothing leaks into the next week.
type weekSession struct {
	Year             int
	Week             int
	Rosters          map[int]string    // roster id -> owning user id
	Names            map[string]string // user id -> display name
	UsesFAAB         bool
	PlayoffStartWeek int
	Playoff          bool         // week falls inside the playoff window
	EligibleRosters  map[int]bool // rosters alive in the bracket; nil outside playoffs
}

// managerFor resolves a roster id to its owning user id.
func (s *weekSession) managerFor(rosterID int) (string, bool) {
	userID, ok := s.Rosters[rosterID]
	return userID, ok
}

// nameFor resolves a user id to a display name, falling back to the id.
func (s *weekSession) nameFor(userID string) string {
	if name, ok := s.Names[userID]; ok && name != "" {
		return name
	}
	return userID
}

// eligible reports whether a roster participates this week. Outside the
// playoff window every roster participates; inside it, only rosters still
// alive in the bracket do.
func (s *weekSession) eligible(rosterID int) bool {
	if !s.Playoff || s.EligibleRosters == nil {
		return true
	}
	return s.EligibleRosters[rosterID]
}
