// Package provider abstracts "propose a move for a position" over a local
// UCI engine process and a remote language-model API, plus the orchestration
// that plays two providers against each other.
package provider

import (
	"context"

	chess "github.com/corentings/chess/v2"
)

// MoveProvider proposes one move (UCI) for the position reached by playing
// movesUCI from the standard start position. A proposal may be illegal or the
// call may fail; callers are expected to retry and ultimately fall back to an
// arbitrary legal move.
type MoveProvider interface {
	ProposeMove(ctx context.Context, movesUCI []string) (string, error)
}

// reconstruct replays a UCI move list from the start position.
func reconstruct(movesUCI []string) (*chess.Game, error) {
	g := chess.NewGame()
	for _, mv := range movesUCI {
		if err := g.PushNotationMove(mv, chess.UCINotation{}, nil); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// legalMovesUCI lists the legal moves of g in UCI form.
func legalMovesUCI(g *chess.Game) []string {
	valid := g.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, m := range valid {
		out = append(out, m.String())
	}
	return out
}
