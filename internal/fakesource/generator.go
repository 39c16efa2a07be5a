package fakesource

import (
	"fmt"
	"math/rand"
	"strconv"
)

const (
	minPoints      = 20
	pointsSpread   = 80
	hitChance      = 5 // one in N periods takes a transfer hit
	hitCost        = 4
	chipChance     = 9 // one in N periods plays a chip
	defaultPeriods = 38
)

var (
	adjectives = []string{"Red", "Royal", "Golden", "Northern", "Sunday", "Flying", "Lucky", "Midnight", "Rusty", "Electric"}
	nouns      = []string{"Rovers", "Lions", "Wanderers", "United", "Foxes", "Magpies", "Saints", "Hammers", "Owls", "Athletic"}
	chips      = []string{"bboost", "3xc", "freehit", "wildcard"}
)

// Generate builds n teams with deterministic histories covering periods.
// The same seed always yields the same league.
func Generate(n, firstID, periods int, seed int64) []Team {
	if periods <= 0 {
		periods = defaultPeriods
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible fixtures
	teams := make([]Team, 0, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(firstID + i)
		name := fmt.Sprintf("%s %s", adjectives[rng.Intn(len(adjectives))], nouns[rng.Intn(len(nouns))])

		history := make([]Gameweek, 0, periods)
		total := 0
		used := map[string]bool{}
		for ev := 1; ev <= periods; ev++ {
			gw := Gameweek{Event: ev, Points: minPoints + rng.Intn(pointsSpread)}
			if rng.Intn(hitChance) == 0 {
				gw.TransfersCost = hitCost
			}
			if rng.Intn(chipChance) == 0 {
				chip := chips[rng.Intn(len(chips))]
				if !used[chip] {
					used[chip] = true
					gw.Chip = chip
				}
			}
			total += gw.Points - gw.TransfersCost
			gw.TotalPoints = total
			history = append(history, gw)
		}
		teams = append(teams, Team{ID: id, Name: name, History: history})
	}
	return teams
}
