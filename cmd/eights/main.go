// cmd/eights/main.go plays the game in a terminal against the local engine.
// "eights simulate N" plays N games with a random-legal player instead.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus"
)

func main() {
	seed := flag.Int64("seed", 0, "shuffle seed (0 = clock)")
	verbose := flag.Bool("v", false, "log engine events")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if flag.Arg(0) == "simulate" {
		n, err := strconv.Atoi(flag.Arg(1))
		if err != nil || n <= 0 {
			n = 100
		}
		simulate(n, *seed, logger)
		return
	}
	play(*seed, logger)
}

func newLocalGame(seed int64, logger logrus.FieldLogger) *game.EightsGame {
	g := game.NewEightsGame(uuid.New(), seed)
	g.OpponentDelay = 0
	g.Logger = logger.WithField("game_id", g.ID)
	return g
}

func play(seed int64, logger logrus.FieldLogger) {
	g := newLocalGame(seed, logger)
	g.BroadcastFn = func(ev game.GameEvent) {
		if ev.Actor == models.ActorAI && ev.Card != nil && ev.Card.Rank != "" {
			line := fmt.Sprintf("opponent plays %s%s", ev.Card.Rank, ev.Card.Suit.Symbol())
			if ev.Suit != "" {
				line += " and calls " + string(ev.Suit)
			}
			fmt.Println(line)
		} else if ev.Actor == models.ActorAI && ev.Type == game.EventPlayerDraw {
			fmt.Println("opponent draws")
		}
	}
	g.Start()

	in := bufio.NewScanner(os.Stdin)
	for {
		v := g.View()
		render(v)
		if v.Status.Terminal() {
			if v.Status == models.StatusPlayerWon {
				fmt.Println("You win!")
			} else {
				fmt.Println("The opponent wins.")
			}
			fmt.Print("play again? [y/N] ")
			if !in.Scan() || !strings.HasPrefix(strings.ToLower(in.Text()), "y") {
				return
			}
			g.Start()
			continue
		}

		if v.IsSuitSelectionOpen {
			fmt.Print("choose a suit (h/d/c/s): ")
		} else {
			fmt.Print("card number, d to draw, r to restart, q to quit: ")
		}
		if !in.Scan() {
			return
		}
		if !apply(g, v, strings.TrimSpace(in.Text())) {
			fmt.Println("not allowed")
		}
	}
}

// apply turns one line of input into an intent.
func apply(g *game.EightsGame, v game.ObfGameState, input string) bool {
	switch {
	case input == "q":
		os.Exit(0)
	case input == "r":
		g.Start()
		return true
	case v.IsSuitSelectionOpen:
		suit, err := game.ParseSuit(input)
		return err == nil && g.ChooseSuit(suit)
	case input == "d":
		return g.Draw()
	}
	i, err := strconv.Atoi(input)
	if err != nil || i < 1 || i > len(v.PlayerHand) {
		return false
	}
	return g.AttemptPlay(v.PlayerHand[i-1].ID)
}

func render(v game.ObfGameState) {
	fmt.Println()
	top := "-"
	if v.DiscardTop != nil {
		top = string(v.DiscardTop.Rank) + v.DiscardTop.Suit.Symbol()
	}
	fmt.Printf("deck %d | discard %s (suit %s) | opponent holds %d\n",
		v.StockpileSize, top, v.CurrentSuit, v.AIHandSize)

	playable := make(map[uuid.UUID]bool, len(v.Playable))
	for _, id := range v.Playable {
		playable[id] = true
	}
	var b strings.Builder
	for i, c := range v.PlayerHand {
		mark := " "
		if playable[c.ID] {
			mark = "*"
		}
		fmt.Fprintf(&b, " %d:%s%s%s", i+1, c.Rank, c.Suit.Symbol(), mark)
	}
	fmt.Println("your hand:" + b.String())
}

// simulate pits a random-legal player against the opponent policy.
func simulate(n int, seed int64, logger logrus.FieldLogger) {
	r := rand.New(rand.NewSource(seed))
	wins, stalled := 0, 0
	for i := 0; i < n; i++ {
		gameSeed := seed
		if gameSeed != 0 {
			gameSeed += int64(i)
		}
		g := newLocalGame(gameSeed, logger)
		g.Start()

		steps := 0
		for ; steps < 1000; steps++ {
			v := g.View()
			if v.Status != models.StatusPlaying {
				break
			}
			switch {
			case v.IsSuitSelectionOpen:
				g.ChooseSuit(models.Suits[r.Intn(len(models.Suits))])
			case len(v.Playable) > 0:
				g.AttemptPlay(v.Playable[r.Intn(len(v.Playable))])
			default:
				g.Draw()
			}
		}
		switch g.View().Status {
		case models.StatusPlayerWon:
			wins++
		case models.StatusPlaying:
			stalled++
		}
		g.Close()
	}
	fmt.Printf("%d games: random player won %d, opponent won %d, %d unfinished\n",
		n, wins, n-wins-stalled, stalled)
}
