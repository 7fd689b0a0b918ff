package game

// Identity is the opaque external reference for a participant. ID is the
// stable key used for lookups and the ledger; Name is used in reports.
type Identity struct {
	ID   string
	Name string
}

func (i Identity) String() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}

// Status is a player's position in the per-round state machine:
// Pending → Active → {Busted, Blackjack, Stayed}.
type Status int

const (
	Pending Status = iota
	Active
	Busted
	Blackjack
	Stayed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Busted:
		return "busted"
	case Blackjack:
		return "blackjack"
	case Stayed:
		return "stayed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the player has no further action this round.
func (s Status) Terminal() bool {
	return s == Busted || s == Blackjack || s == Stayed
}

// Result is how a player's wager was resolved for the round.
type Result int

const (
	Unresolved Result = iota
	Win
	Lose
	Push
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Lose:
		return "lose"
	case Push:
		return "push"
	default:
		return "unresolved"
	}
}

// Player is a participant in a game.
type Player struct {
	Identity Identity
	Hand     Hand
	Wager    int64
	Status   Status
	Result   Result

	// settled is set once the ledger reflects Result, so a round can never
	// move a player's balance twice.
	settled bool
}

// Done reports whether the player has finished acting this round.
func (p *Player) Done() bool { return p.Status.Terminal() }

// delta is the ledger movement implied by Result.
func (p *Player) delta() int64 {
	switch p.Result {
	case Win:
		return p.Wager
	case Lose:
		return -p.Wager
	default:
		return 0
	}
}

func (p *Player) resetRound() {
	p.Hand.Reset()
	p.Status = Pending
	p.Result = Unresolved
	p.settled = false
}

// PlayerState is a read-only snapshot of a player.
type PlayerState struct {
	Identity Identity
	Cards    []int
	Values   []int
	Total    int
	Wager    int64
	Status   Status
	Result   Result
	Settled  bool
}

func (p *Player) snapshot() PlayerState {
	return PlayerState{
		Identity: p.Identity,
		Cards:    p.Hand.Cards(),
		Values:   p.Hand.Values(),
		Total:    p.Hand.Total(),
		Wager:    p.Wager,
		Status:   p.Status,
		Result:   p.Result,
		Settled:  p.settled,
	}
}
