package provider

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/corentings/chess/v2"
	"github.com/sirupsen/logrus"

	gamepkg "github.com/cyberchess/server/internal/game"
	"github.com/cyberchess/server/internal/models"
)

const (
	// DefaultMaxRetries bounds how many bad proposals a provider gets per
	// turn before the exhibition falls back to a random legal move.
	DefaultMaxRetries = 3

	// DefaultMaxPlies caps exhibition length; games that reach it are
	// adjudicated as draws.
	DefaultMaxPlies = 300
)

// Exhibition plays two MoveProviders against each other to completion.
// Exhibition games never touch ratings or persistent records.
type Exhibition struct {
	White MoveProvider
	Black MoveProvider

	// WhiteName and BlackName label the PGN tags.
	WhiteName string
	BlackName string

	MaxRetries int
	MaxPlies   int

	Log *logrus.Logger
}

// ExhibitionResult describes a finished exhibition game.
type ExhibitionResult struct {
	Result   string   `json:"result"`
	Method   string   `json:"method"`
	MovesUCI []string `json:"moves_uci"`
	MovesSAN []string `json:"moves_san"`
	PGN      string   `json:"pgn"`
}

// Play runs the game until a terminal position, the ply cap, or context
// cancellation. Provider failures never abort the game; after the retry
// budget a random legal move keeps it progressing.
func (e *Exhibition) Play(ctx context.Context) (*ExhibitionResult, error) {
	retries := e.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	maxPlies := e.MaxPlies
	if maxPlies <= 0 {
		maxPlies = DefaultMaxPlies
	}

	game := chess.NewGame()
	var movesUCI, movesSAN []string

	for game.Outcome() == chess.NoOutcome && len(movesUCI) < maxPlies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		provider := e.Black
		if game.Position().Turn() == chess.White {
			provider = e.White
		}

		legal := legalMovesUCI(game)
		if len(legal) == 0 {
			break
		}

		move := e.propose(ctx, provider, movesUCI, legal, retries)
		pos := game.Position()
		mv, err := (chess.UCINotation{}).Decode(pos, move)
		if err != nil {
			// Only reachable if legalMovesUCI and Decode disagree;
			// treat it like a provider failure.
			move = legal[rand.IntN(len(legal))]
			if mv, err = (chess.UCINotation{}).Decode(pos, move); err != nil {
				return nil, err
			}
		}
		san := chess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			return nil, err
		}
		movesUCI = append(movesUCI, move)
		movesSAN = append(movesSAN, san)
	}

	result, method := exhibitionOutcome(game, len(movesUCI) >= maxPlies)
	whiteName, blackName := e.WhiteName, e.BlackName
	if whiteName == "" {
		whiteName = "White"
	}
	if blackName == "" {
		blackName = "Black"
	}
	return &ExhibitionResult{
		Result:   result,
		Method:   method,
		MovesUCI: movesUCI,
		MovesSAN: movesSAN,
		PGN:      gamepkg.BuildPGN(whiteName, blackName, movesSAN, models.Result(result), method, time.Now()),
	}, nil
}

// propose asks the provider for a legal move, retrying on failures and
// illegal suggestions, then falls back to a random legal move.
func (e *Exhibition) propose(ctx context.Context, p MoveProvider, movesUCI, legal []string, retries int) string {
	legalSet := make(map[string]struct{}, len(legal))
	for _, mv := range legal {
		legalSet[mv] = struct{}{}
	}

	for attempt := 0; attempt < retries; attempt++ {
		move, err := p.ProposeMove(ctx, movesUCI)
		if err != nil {
			if e.Log != nil {
				e.Log.WithError(err).WithField("attempt", attempt+1).Debug("exhibition provider failed")
			}
			continue
		}
		move = strings.ToLower(strings.TrimSpace(move))
		if _, ok := legalSet[move]; ok {
			return move
		}
		if e.Log != nil {
			e.Log.WithFields(logrus.Fields{"move": move, "attempt": attempt + 1}).Debug("exhibition provider proposed illegal move")
		}
	}
	return legal[rand.IntN(len(legal))]
}

func exhibitionOutcome(game *chess.Game, plyCapped bool) (string, string) {
	switch game.Outcome() {
	case chess.WhiteWon:
		return "1-0", strings.ToLower(game.Method().String())
	case chess.BlackWon:
		return "0-1", strings.ToLower(game.Method().String())
	case chess.Draw:
		return "1/2-1/2", strings.ToLower(game.Method().String())
	default:
		if plyCapped {
			return "1/2-1/2", "adjudicated"
		}
		return "1/2-1/2", strings.ToLower(game.Method().String())
	}
}
