package models

// Actor identifies one of the two seats at the table.
type Actor string

const (
	ActorPlayer Actor = "player"
	ActorAI     Actor = "ai"
)

// Other returns the opposing seat.
func (a Actor) Other() Actor {
	if a == ActorPlayer {
		return ActorAI
	}
	return ActorPlayer
}
