// Command duelbot connects a scripted fighter to a duel server. Run it
// twice to watch two bots fight, or give it a room code to spar against
// a human.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"crossblades/server/ai"
	"crossblades/server/client"
	"crossblades/server/proto"
	"crossblades/server/sim"
)

func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/ws", "websocket endpoint of the duel server")
		code      = flag.String("code", "", "room code to join; empty creates a fresh room")
		archetype = flag.String("archetype", sim.DefaultArchetype, "fighter archetype")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "policy seed; reuse one to replay a temperament")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *url, *code, *archetype, *seed); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, url, code, archetype string, seed int64) error {
	session, err := client.Dial(ctx, client.SessionConfig{
		URL:       url,
		Code:      code,
		Archetype: archetype,
	})
	if err != nil {
		return err
	}

	assign := session.Assign()
	if code == "" {
		fmt.Printf("room %s is open, waiting for a challenger\n", assign.Code)
	}
	log.Printf("fighting as %s (slot %d) in room %s", assign.PlayerID, assign.Slot, assign.Code)

	gameOver := make(chan struct{})
	policy := ai.NewPolicy(seed, ai.DefaultPolicyConfig())
	duel := client.NewDuel(session, client.Hooks{
		OnRoundStart: func(round int) {
			log.Printf("round %d", round)
		},
		OnKill: func(env proto.ServerEnvelope) {
			log.Printf("%s cut down %s, scores %v", env.AttackerID, env.DefenderID, env.Scores)
		},
		OnGameOver: func(winnerID string, scores map[string]int) {
			log.Printf("game over, %s takes it %v", winnerID, scores)
			close(gameOver)
		},
		OnOpponentLeft: func() {
			log.Printf("opponent left the room")
		},
	})
	defer duel.Close()

	ticker := time.NewTicker(time.Second / sim.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-gameOver:
			return nil
		case <-duel.Done():
			return duel.Err()
		case <-ticker.C:
			self, haveSelf := duel.LocalState()
			opponent, haveOpponent := duel.RemoteState()
			if !haveSelf || !haveOpponent {
				continue
			}
			duel.Frame(policy.Decide(self, opponent))
		}
	}
}
