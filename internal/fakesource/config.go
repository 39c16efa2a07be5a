// Package fakesource simulates the fantasy league REST API the board reads
// from. It serves a deterministic league so the fetch client, the service
// and the front-ends can be exercised without the real upstream.
package fakesource

// Gameweek is one row of an entry's history.
type Gameweek struct {
	Event         int    `json:"event"`
	Points        int    `json:"points"`
	TotalPoints   int    `json:"total_points"`
	TransfersCost int    `json:"event_transfers_cost"`
	Chip          string `json:"-"`
}

// Team is a simulated league entry.
type Team struct {
	ID      string
	Name    string
	History []Gameweek
}

// Total returns the running total at period, or 0 when the team has no row.
func (t Team) Total(period int) int {
	for _, gw := range t.History {
		if gw.Event == period {
			return gw.TotalPoints
		}
	}
	return 0
}

// Option configures a Server.
type Option func(*Server)

// WithCurrentPeriod sets the period reported as current. Zero or negative
// means no period is current.
func WithCurrentPeriod(period int) Option {
	return func(s *Server) {
		s.current = period
	}
}

// WithPeriods sets how many periods bootstrap-static lists.
func WithPeriods(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.periods = n
		}
	}
}

// WithTeams registers explicit teams, replacing any with the same id.
func WithTeams(teams ...Team) Option {
	return func(s *Server) {
		for _, t := range teams {
			s.add(t)
		}
	}
}

// WithGeneratedTeams adds n generated teams with ids starting at firstID.
func WithGeneratedTeams(n, firstID int, seed int64) Option {
	return func(s *Server) {
		for _, t := range Generate(n, firstID, s.periods, seed) {
			s.add(t)
		}
	}
}

// WithFailingEntity makes every request for id answer with status.
func WithFailingEntity(id string, status int) Option {
	return func(s *Server) {
		s.failing[id] = status
	}
}

// WithAnonymousEntity makes the profile endpoint omit the name for id.
func WithAnonymousEntity(id string) Option {
	return func(s *Server) {
		s.anonymous[id] = struct{}{}
	}
}
