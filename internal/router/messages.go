package router

const (
	newUserMsg           = "You were not registered for bucks gambling, so I have automatically registered you. You now have %d bucks, %s."
	finMsg               = "Please finish your game of blackjack first, %s."
	noGameMsg            = "You do not currently have a game of blackjack going, %s. Type !blackjack to start one."
	noMultiplayerGameMsg = "You do not currently have a multiplayer game of blackjack going, %s. Type '!blackjack new' to start one."
	invalidBetMsg        = "Invalid bet. Please choose a number greater than or equal to 0, or enter \"all\" to bet your whole balance, %s."
	notEnoughMsg         = "You do not have enough bucks to bet that much, %s!"
	otherCannotCoverMsg  = "%s does not have enough bucks to cover their wager, %s."
	notYourTurnMsg       = "It is not your turn, %s."
	notOwnerMsg          = "Only the table owner can do that, %s."
	tableFullMsg         = "That table is full, %s."
	alreadyJoinedMsg     = "You are already at that table, %s."
	roundInProgressMsg   = "A round is already in progress, %s."
	roundNotStartedMsg   = "The round has not started yet; the table owner can type !deal, %s."
	settlementPendingMsg = "The last round is still waiting to be settled. Type !settle to retry, %s."
	nothingToSettleMsg   = "There is nothing to settle, %s."
	tableNotFoundMsg     = "I couldn't find a table for %q, %s."
	tableNotOpenMsg      = "That table is not open for joining, %s."
	unknownAccountMsg    = "I don't know anyone called %q, %s."
	finishHandMsg        = "Your hand has already been dealt. Finish it with !hit or !stay first, %s."
	joinUsageMsg         = "Tell me whose table to join, for example !join <table id>, %s."
	unknownCommandMsg    = "I don't know that command, %s. Type !help for a list."
	errorMsg             = "Something went wrong, %s. Please try again."

	tableCreatedMsg  = "Multiplayer Blackjack game created! Others can join with !join %s. Type !deal when everyone is ready, %s."
	joinedMsg        = "%s joined %s's table with a wager of %d."
	betMsg           = "Your wager for the next round is %d, %s."
	allInBetMsg      = "You're going all in next round with %d bucks, %s."
	abandonedMsg     = "You have abandoned your game of blackjack, %s."
	leftMsg          = "%s left the table."
	registeredMsg    = "Successfully registered. You have %d bucks, %s."
	alreadyInMsg     = "You are already in the system! Hooray! You have %d bucks, %s."
	balanceMsg       = "%s's balance is %d bucks."
	resetMsg         = "You have been reset to %d bucks, %s."
	leaderboardTitle = "Bucks Leaderboard"
	positionMsg      = "%s's position: %d, balance: %d."

	tableStatusMsg = "Table %s, owned by %s. Rounds played: %d."
	dealerUpMsg    = "The dealer is showing %d."
	seatMsg        = "%s: wager %d, %s"
	seatTotalMsg   = ", total %d"
	waitingOnMsg   = "Waiting on %s."

	helpMsg = `Commands:
!blackjack [amount|all]  play a single hand (default wager %d)
!blackjack new           open a multiplayer table
!join <table>            join a table by table ID or player
!bet <amount|all>        set your wager for the next round
!deal                    deal the next round (table owner)
!hit / !stay             take a card / stand on your total
!settle                  retry a failed settlement
!abandon                 leave your table, or close it if you own it
!balance [player]        show a balance
!register / !reset       open an account / reset your balance
!table                   show your table
!leaderboard             show the richest players`
)
