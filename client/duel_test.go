package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crossblades/server"
	servernet "crossblades/server/internal/net"
	"crossblades/server/proto"
	"crossblades/server/sim"
)

func TestDetectCuesEdges(t *testing.T) {
	grounded := sim.NewCombatant("p1", "squire", 400, sim.FacingRight)

	jumped := grounded
	jumped.Grounded = false
	jumped.VY = sim.JumpVelocity
	if kinds := detectCues(grounded, jumped); len(kinds) != 1 || kinds[0] != CueJump {
		t.Fatalf("expected a jump cue, got %v", kinds)
	}

	if kinds := detectCues(jumped, grounded); len(kinds) != 1 || kinds[0] != CueLand {
		t.Fatalf("expected a land cue, got %v", kinds)
	}

	swinging := grounded
	swinging.Attacking = true
	if kinds := detectCues(grounded, swinging); len(kinds) != 1 || kinds[0] != CueSwing {
		t.Fatalf("expected a swing cue, got %v", kinds)
	}

	// A corpse hitting the floor makes no landing sound.
	falling := grounded
	falling.Grounded = false
	dead := grounded
	dead.Alive = false
	if kinds := detectCues(falling, dead); len(kinds) != 0 {
		t.Fatalf("expected no cues for a dead landing, got %v", kinds)
	}

	// A corpse launched by the kill impulse makes no jump sound either.
	launched := grounded
	launched.Grounded = false
	launched.VY = -340
	launched.Alive = false
	if kinds := detectCues(grounded, launched); len(kinds) != 0 {
		t.Fatalf("expected no cues for a launched corpse, got %v", kinds)
	}

	if kinds := detectCues(grounded, grounded); len(kinds) != 0 {
		t.Fatalf("expected no cues without an edge, got %v", kinds)
	}
}

func TestDuelFightsOverARealServer(t *testing.T) {
	hub := server.NewHub(server.RoomConfig{
		RoundsToWin:      5,
		MaxRounds:        9,
		CountdownSeconds: 1,
		RoundEndDelay:    500 * time.Millisecond,
	}, nil, nil)
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{}))
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ctx := context.Background()
	host, err := Dial(ctx, SessionConfig{URL: wsURL})
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}

	roundCh := make(chan int, 8)
	killCh := make(chan proto.ServerEnvelope, 8)
	cueCh := make(chan Cue, 64)
	hooks := Hooks{
		OnRoundStart: func(round int) {
			select {
			case roundCh <- round:
			default:
			}
		},
		OnKill: func(env proto.ServerEnvelope) {
			select {
			case killCh <- env:
			default:
			}
		},
		OnCue: func(cue Cue) {
			select {
			case cueCh <- cue:
			default:
			}
		},
	}
	hostDuel := NewDuel(host, hooks)
	t.Cleanup(func() { hostDuel.Close() })

	guest, err := Dial(ctx, SessionConfig{
		URL:       wsURL,
		Code:      host.Assign().Code,
		Archetype: "brute",
	})
	if err != nil {
		t.Fatalf("guest dial: %v", err)
	}
	guestDuel := NewDuel(guest, Hooks{})
	t.Cleanup(func() { guestDuel.Close() })

	waitForRound(t, roundCh, 1)

	// Drive the host toward the idle guest and swing on arrival. The
	// kill must come from the server's resolver, not local prediction.
	hostID := host.Assign().PlayerID
	guestID := guest.Assign().PlayerID
	deadline := time.After(15 * time.Second)
	ticker := time.NewTicker(time.Second / sim.TickRate)
	defer ticker.Stop()

	var kill proto.ServerEnvelope
drive:
	for {
		select {
		case kill = <-killCh:
			break drive
		case <-deadline:
			t.Fatalf("no kill within the deadline; status %+v", hostDuel.Status())
		case <-ticker.C:
			var frame sim.InputFrame
			self, haveSelf := hostDuel.LocalState()
			opp, haveOpp := hostDuel.RemoteState()
			if haveSelf && haveOpp {
				switch dist := opp.X - self.X; {
				case dist > 70:
					frame.Right = true
					frame.Sprint = true
				case dist > 0:
					frame.Attack = true
				}
			}
			hostDuel.Frame(frame)
			guestDuel.Frame(sim.InputFrame{})
		}
	}

	if kill.AttackerID != hostID || kill.DefenderID != guestID {
		t.Fatalf("expected %s to kill %s, got attacker %s defender %s",
			hostID, guestID, kill.AttackerID, kill.DefenderID)
	}
	if kill.Scores[hostID] != 1 {
		t.Fatalf("expected host score 1 in the kill event, got %+v", kill.Scores)
	}
	if got := hostDuel.Status().Scores[hostID]; got != 1 {
		t.Fatalf("expected host score 1 in status, got %d", got)
	}
	poseDeadline := time.Now().Add(time.Second)
	for {
		if _, ok := hostDuel.RemotePose(time.Now()); ok {
			break
		}
		if time.Now().After(poseDeadline) {
			t.Fatalf("expected a remote pose while snapshots keep arriving")
		}
		time.Sleep(10 * time.Millisecond)
	}

	assertCueSeen(t, cueCh, hostID, CueSwing)
	assertCueSeen(t, cueCh, guestID, CueDeath)

	// The room rests, then arms round two.
	waitForRound(t, roundCh, 2)
}

func waitForRound(t *testing.T, roundCh <-chan int, want int) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case round := <-roundCh:
			if round == want {
				return
			}
		case <-deadline:
			t.Fatalf("round %d never started", want)
		}
	}
}

func assertCueSeen(t *testing.T, cueCh <-chan Cue, playerID string, kind CueKind) {
	t.Helper()
	for {
		select {
		case cue := <-cueCh:
			if cue.PlayerID == playerID && cue.Kind == kind {
				return
			}
		default:
			t.Fatalf("cue %s for %s never fired", kind, playerID)
		}
	}
}
