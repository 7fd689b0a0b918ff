// Package game implements the blackjack session engine used by the chat bot.
//
// The main type is Game, a turn controller that owns a shoe, an ordered list
// of players (owner first) and the dealer's hand. Every exported method
// takes the game's lock, so a single Game may be driven concurrently by the
// chat messages of all of its participants while different games proceed
// fully in parallel.
//
// # Basic Usage
//
// A single-player game deals as soon as it is created:
//
//	g, out, err := game.NewSinglePlayer(ctx, owner, bank, ledger.Fixed(25))
//	// relay out.Report; then on each command:
//	out, err = g.Hit(ctx, owner.ID)
//	out, err = g.Stay(ctx, owner.ID)
//	if out.GameOver {
//	    // discard g
//	}
//
// A multiplayer game starts in a lobby where players join and bet until
// the owner deals:
//
//	g := game.New(owner, bank, true)
//	g.AddPlayer(friend)
//	g.PlaceBet(ctx, friend.ID, ledger.Fixed(10))
//	out, err := g.StartRound(ctx, owner.ID)
//
// # Deterministic Testing
//
// Inject the randomness explicitly:
//
//	g := game.New(owner, bank, false, game.WithRNG(randutil.New(42)))
//
// or stack the shoe card by card:
//
//	g := game.New(owner, bank, false, game.WithShoe(shoe.NewStacked(10, 7, 9, 3)))
//
// # Settlement
//
// Busts and 21s move money as soon as they happen. Stayed players are
// settled against the dealer when the last turn ends. All pending movements
// for a round are validated together and applied atomically; if any debit
// cannot be covered nothing is applied and the game waits in a settling
// state until Settle succeeds.
package game
