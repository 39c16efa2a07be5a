package fakesource

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

type bootstrapEvent struct {
	ID        int  `json:"id"`
	IsCurrent bool `json:"is_current"`
	Finished  bool `json:"finished"`
}

type bootstrapResponse struct {
	Events []bootstrapEvent `json:"events"`
}

type chipUse struct {
	Name  string `json:"name"`
	Event int    `json:"event"`
}

type historyResponse struct {
	Current []Gameweek `json:"current"`
	Chips   []chipUse  `json:"chips"`
}

type profileResponse struct {
	Name string `json:"name,omitempty"`
}

// Server is an http.Handler serving the simulated API. It is safe for
// concurrent use; knobs may be changed while requests are in flight.
type Server struct {
	mu        sync.RWMutex
	current   int
	periods   int
	teams     map[string]Team
	order     []string
	failing   map[string]int
	anonymous map[string]struct{}

	requests atomic.Int64
	mux      *http.ServeMux
}

// New creates a Server. Without options it reports period 1 as current and
// knows no teams.
func New(opts ...Option) *Server {
	s := &Server{
		current:   1,
		periods:   defaultPeriods,
		teams:     make(map[string]Team),
		failing:   make(map[string]int),
		anonymous: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /bootstrap-static/", s.handleBootstrap)
	s.mux.HandleFunc("GET /entry/{id}/history/", s.handleHistory)
	s.mux.HandleFunc("GET /entry/{id}/", s.handleProfile)
	return s
}

func (s *Server) add(t Team) {
	if _, ok := s.teams[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.teams[t.ID] = t
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	s.mux.ServeHTTP(w, r)
}

// Requests returns how many requests have been served.
func (s *Server) Requests() int64 { return s.requests.Load() }

// SetCurrentPeriod changes the period reported as current.
func (s *Server) SetCurrentPeriod(period int) {
	s.mu.Lock()
	s.current = period
	s.mu.Unlock()
}

// SetFailing makes requests for id answer with status; 0 clears it.
func (s *Server) SetFailing(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failing, id)
		return
	}
	s.failing[id] = status
}

// IDs returns the known team ids in registration order.
func (s *Server) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Team returns a registered team.
func (s *Server) Team(id string) (Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	return t, ok
}

func (s *Server) handleBootstrap(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]bootstrapEvent, 0, s.periods)
	for ev := 1; ev <= s.periods; ev++ {
		events = append(events, bootstrapEvent{
			ID:        ev,
			IsCurrent: ev == s.current,
			Finished:  ev < s.current,
		})
	}
	writeJSON(w, http.StatusOK, bootstrapResponse{Events: events})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (Team, bool) {
	id := r.PathValue("id")

	s.mu.RLock()
	status, failing := s.failing[id]
	team, ok := s.teams[id]
	s.mu.RUnlock()

	if failing {
		http.Error(w, http.StatusText(status), status)
		return Team{}, false
	}
	if !ok {
		http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
		return Team{}, false
	}
	return team, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	team, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	resp := historyResponse{Current: []Gameweek{}, Chips: []chipUse{}}
	for _, gw := range team.History {
		if current > 0 && gw.Event > current {
			continue
		}
		resp.Current = append(resp.Current, gw)
		if gw.Chip != "" {
			resp.Chips = append(resp.Chips, chipUse{Name: gw.Chip, Event: gw.Event})
		}
	}
	sort.Slice(resp.Chips, func(i, j int) bool { return resp.Chips[i].Event < resp.Chips[j].Event })
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	team, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	_, anonymous := s.anonymous[team.ID]
	s.mu.RUnlock()

	resp := profileResponse{}
	if !anonymous {
		resp.Name = team.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
