package event

import "sort"

// Type is the closed set of match event kinds.
type Type string

const (
	TypeGoal            Type = "goal"
	TypeOwnGoal         Type = "own_goal"
	TypeAssist          Type = "assist"
	TypeShot            Type = "shot"
	TypeShotOnTarget    Type = "shot_on_target"
	TypeSave            Type = "save"
	TypeTackle          Type = "tackle"
	TypeInterception    Type = "interception"
	TypeFoul            Type = "foul"
	TypeYellowCard      Type = "yellow_card"
	TypeRedCard         Type = "red_card"
	TypeSubstitution    Type = "substitution"
	TypeCorner          Type = "corner"
	TypeOffside         Type = "offside"
	TypePenaltyWon      Type = "penalty_won"
	TypePenaltyMissed   Type = "penalty_missed"
	TypeInjury          Type = "injury"
	TypeFormationChange Type = "formation_change"
	TypeNote            Type = "note"
)

type Category string

const (
	CategoryScoring    Category = "scoring"
	CategoryAttacking  Category = "attacking"
	CategoryDefending  Category = "defending"
	CategoryDiscipline Category = "discipline"
	CategorySetPiece   Category = "set_piece"
	CategoryTactical   Category = "tactical"
	CategoryOther      Category = "other"
)

// QuotaBucket says which per-match cap an event counts against.
type QuotaBucket string

const (
	BucketExempt           QuotaBucket = "exempt"
	BucketEvents           QuotaBucket = "events"
	BucketFormationChanges QuotaBucket = "formation_changes"
)

type Info struct {
	Category Category
	Label    string
	Bucket   QuotaBucket
}

var catalog = map[Type]Info{
	TypeGoal:            {Category: CategoryScoring, Label: "Goal", Bucket: BucketExempt},
	TypeOwnGoal:         {Category: CategoryScoring, Label: "Own goal", Bucket: BucketExempt},
	TypeAssist:          {Category: CategoryAttacking, Label: "Assist", Bucket: BucketEvents},
	TypeShot:            {Category: CategoryAttacking, Label: "Shot", Bucket: BucketEvents},
	TypeShotOnTarget:    {Category: CategoryAttacking, Label: "Shot on target", Bucket: BucketEvents},
	TypeSave:            {Category: CategoryDefending, Label: "Save", Bucket: BucketEvents},
	TypeTackle:          {Category: CategoryDefending, Label: "Tackle", Bucket: BucketEvents},
	TypeInterception:    {Category: CategoryDefending, Label: "Interception", Bucket: BucketEvents},
	TypeFoul:            {Category: CategoryDiscipline, Label: "Foul", Bucket: BucketEvents},
	TypeYellowCard:      {Category: CategoryDiscipline, Label: "Yellow card", Bucket: BucketEvents},
	TypeRedCard:         {Category: CategoryDiscipline, Label: "Red card", Bucket: BucketEvents},
	TypeSubstitution:    {Category: CategoryTactical, Label: "Substitution", Bucket: BucketEvents},
	TypeCorner:          {Category: CategorySetPiece, Label: "Corner", Bucket: BucketEvents},
	TypeOffside:         {Category: CategorySetPiece, Label: "Offside", Bucket: BucketEvents},
	TypePenaltyWon:      {Category: CategorySetPiece, Label: "Penalty won", Bucket: BucketEvents},
	TypePenaltyMissed:   {Category: CategorySetPiece, Label: "Penalty missed", Bucket: BucketEvents},
	TypeInjury:          {Category: CategoryOther, Label: "Injury", Bucket: BucketEvents},
	TypeFormationChange: {Category: CategoryTactical, Label: "Formation change", Bucket: BucketFormationChanges},
	TypeNote:            {Category: CategoryOther, Label: "Note", Bucket: BucketEvents},
}

func Lookup(t Type) (Info, bool) {
	info, ok := catalog[t]
	return info, ok
}

func (t Type) Valid() bool {
	_, ok := catalog[t]
	return ok
}

func (t Type) Info() Info {
	return catalog[t]
}

func (t Type) IsScoring() bool {
	return catalog[t].Category == CategoryScoring
}

// Types returns every known kind in lexical order.
func Types() []Type {
	out := make([]Type, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
