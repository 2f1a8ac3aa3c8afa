package quota

import "fmt"

type Tier string

const (
	TierGuest   Tier = "guest"
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

func (t Tier) Valid() bool {
	switch t {
	case TierGuest, TierFree, TierPremium:
		return true
	}
	return false
}

type Resource string

const (
	ResourceOwnedTeams       Resource = "owned_teams"
	ResourcePlayersPerTeam   Resource = "players_per_team"
	ResourceSeasons          Resource = "seasons"
	ResourceMatchesPerSeason Resource = "matches_per_season"
	ResourceEventsPerMatch   Resource = "events_per_match"
	ResourceFormationChanges Resource = "formation_changes_per_match"
	ResourceActiveShareLinks Resource = "active_share_links"
)

// Unlimited marks a resource without a cap.
const Unlimited = -1

// Limits caps each resource for one tier. Missing resources are unlimited.
type Limits struct {
	Tier   Tier             `json:"tier" toml:"tier"`
	Values map[Resource]int `json:"limits" toml:"limits"`
}

func (l Limits) For(r Resource) int {
	v, ok := l.Values[r]
	if !ok {
		return Unlimited
	}
	return v
}

// Usage is the current non-deleted count of a resource in its scope.
type Usage struct {
	Resource Resource
	Count    int
}

type Decision struct {
	Allowed  bool
	Resource Resource
	Limit    int
	Reason   string
}

// Evaluate reports whether one more unit of usage.Resource fits within limits.
func Evaluate(usage Usage, limits Limits) Decision {
	limit := limits.For(usage.Resource)
	if limit < 0 || usage.Count < limit {
		return Decision{Allowed: true, Resource: usage.Resource, Limit: limit}
	}
	return Decision{
		Allowed:  false,
		Resource: usage.Resource,
		Limit:    limit,
		Reason:   fmt.Sprintf("%s plan allows %d %s", limits.Tier, limit, label(usage.Resource)),
	}
}

func label(r Resource) string {
	switch r {
	case ResourceOwnedTeams:
		return "teams"
	case ResourcePlayersPerTeam:
		return "players per team"
	case ResourceSeasons:
		return "seasons"
	case ResourceMatchesPerSeason:
		return "matches per season"
	case ResourceEventsPerMatch:
		return "events per match"
	case ResourceFormationChanges:
		return "formation changes per match"
	case ResourceActiveShareLinks:
		return "active share links"
	}
	return string(r)
}

// Defaults are the built-in tier limits used when the tier source has never
// answered.
func Defaults(t Tier) Limits {
	switch t {
	case TierPremium:
		return Limits{Tier: TierPremium, Values: map[Resource]int{
			ResourceOwnedTeams:       Unlimited,
			ResourcePlayersPerTeam:   Unlimited,
			ResourceSeasons:          Unlimited,
			ResourceMatchesPerSeason: Unlimited,
			ResourceEventsPerMatch:   Unlimited,
			ResourceFormationChanges: Unlimited,
			ResourceActiveShareLinks: 20,
		}}
	case TierFree:
		return Limits{Tier: TierFree, Values: map[Resource]int{
			ResourceOwnedTeams:       3,
			ResourcePlayersPerTeam:   30,
			ResourceSeasons:          3,
			ResourceMatchesPerSeason: 40,
			ResourceEventsPerMatch:   150,
			ResourceFormationChanges: 10,
			ResourceActiveShareLinks: 3,
		}}
	default:
		return Limits{Tier: TierGuest, Values: map[Resource]int{
			ResourceOwnedTeams:       1,
			ResourcePlayersPerTeam:   20,
			ResourceSeasons:          1,
			ResourceMatchesPerSeason: 10,
			ResourceEventsPerMatch:   50,
			ResourceFormationChanges: 3,
			ResourceActiveShareLinks: 0,
		}}
	}
}
