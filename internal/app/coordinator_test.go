package app

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/zhangyumengsarah-gif/word/internal/config"
	"github.com/zhangyumengsarah-gif/word/internal/domain"
)

type published struct {
	to      string
	event   string
	payload any
}

// recordingPublisher flattens every publish into one entry per recipient.
type recordingPublisher struct {
	mu      sync.Mutex
	sent    []published
	evicted []string
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, recipients []string, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range recipients {
		p.sent = append(p.sent, published{to: id, event: event, payload: payload})
	}
	return p.err
}

func (p *recordingPublisher) Evict(_ context.Context, participantID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evicted = append(p.evicted, participantID)
	return nil
}

func (p *recordingPublisher) to(id string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.sent {
		if m.to == id {
			out = append(out, m)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
	p.evicted = nil
}

func newTestCoordinator(cfg *config.GameConfig) (*Coordinator, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewService(cfg, rand.New(rand.NewSource(7)))
	return NewCoordinator(svc, nil, pub), pub
}

func joinBoth(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"p1", "p2"} {
		if err := c.Join(ctx, id); err != nil {
			t.Fatalf("Join(%s) error: %v", id, err)
		}
	}
}

func eventNames(msgs []published) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.event
	}
	return out
}

func TestCoordinatorScenario(t *testing.T) {
	ctx := context.Background()
	c, pub := newTestCoordinator(nil)

	if err := c.Join(ctx, "p1"); err != nil {
		t.Fatalf("Join(p1) error: %v", err)
	}
	if got := pub.to("p1"); len(got) != 1 || got[0].event != "playerID" || got[0].payload != 0 {
		t.Fatalf("p1 after join = %+v", got)
	}
	if err := c.Join(ctx, "p2"); err != nil {
		t.Fatalf("Join(p2) error: %v", err)
	}

	p1 := pub.to("p1")
	p2 := pub.to("p2")
	if !reflect.DeepEqual(eventNames(p1), []string{"playerID", "gameStart"}) {
		t.Fatalf("p1 events = %v", eventNames(p1))
	}
	if !reflect.DeepEqual(eventNames(p2), []string{"playerID", "gameStart"}) || p2[0].payload != 1 {
		t.Fatalf("p2 events = %+v", p2)
	}
	start1 := p1[1].payload.(GameStartPayload)
	start2 := p2[1].payload.(GameStartPayload)
	if len(start1.Hand) != 13 || len(start2.Hand) != 13 || !start1.IsMyTurn || start2.IsMyTurn {
		t.Fatalf("gameStart payloads = %+v / %+v", start1, start2)
	}

	pub.reset()
	if err := c.Submit(ctx, "p1", CommandDiscardTile, []byte(`"A"`)); err != nil {
		t.Fatalf("discard error: %v", err)
	}
	if got := eventNames(pub.to("p1")); !reflect.DeepEqual(got, []string{"updateDiscard"}) {
		t.Fatalf("p1 after discard = %v", got)
	}
	if got := eventNames(pub.to("p2")); !reflect.DeepEqual(got, []string{"updateDiscard", "askPeng"}) {
		t.Fatalf("p2 after discard = %v", got)
	}

	pub.reset()
	if err := c.Submit(ctx, "p2", CommandPengResponse, []byte(`false`)); err != nil {
		t.Fatalf("peng response error: %v", err)
	}
	if got := pub.to("p2"); len(got) != 1 || got[0].event != "yourTurnToDraw" {
		t.Fatalf("p2 after decline = %+v", got)
	}
	if got := pub.to("p1"); len(got) != 0 {
		t.Fatalf("p1 should hear nothing on decline, got %+v", got)
	}

	pub.reset()
	if err := c.Submit(ctx, "p2", CommandDrawTile, nil); err != nil {
		t.Fatalf("draw error: %v", err)
	}
	got := pub.to("p2")
	if len(got) != 1 || got[0].event != "receiveTile" {
		t.Fatalf("p2 after draw = %+v", got)
	}
	if _, ok := got[0].payload.(domain.Tile); !ok {
		t.Fatalf("receiveTile payload = %T, want tile", got[0].payload)
	}
	if snap := c.Snapshot(); snap.DeckRemaining != 51 || snap.CurrentTurnSeat != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestCoordinatorJoinFull(t *testing.T) {
	ctx := context.Background()
	c, pub := newTestCoordinator(nil)
	joinBoth(t, c)
	pub.reset()

	for _, id := range []string{"p3", "p4"} {
		err := c.Join(ctx, id)
		if !errors.Is(err, domain.ErrSessionFull) {
			t.Fatalf("Join(%s) error = %v, want ErrSessionFull", id, err)
		}
		got := pub.to(id)
		if len(got) != 1 || got[0].event != "status" || got[0].payload != MessageSessionFull {
			t.Fatalf("%s notices = %+v", id, got)
		}
	}
	if len(pub.to("p1")) != 0 || len(pub.to("p2")) != 0 {
		t.Fatalf("seated participants should not hear rejected joins")
	}
	if c.Seated("p3") || !c.Seated("p1") {
		t.Fatalf("seating changed by rejected join")
	}
}

func TestCoordinatorRejections(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		kind    CommandKind
		raw     string
		wantErr error
		notice  bool
	}{
		{name: "malformed discard", id: "p1", kind: CommandDiscardTile, raw: `42`, wantErr: ErrMalformedPayload, notice: true},
		{name: "null peng", id: "p2", kind: CommandPengResponse, raw: `null`, wantErr: ErrMalformedPayload, notice: true},
		{name: "peng without claim", id: "p2", kind: CommandPengResponse, raw: `true`, wantErr: ErrNoClaim, notice: true},
		{name: "unknown", id: "p1", kind: "shuffle", raw: `{}`, wantErr: ErrUnknownCommand, notice: true},
		{name: "unseated", id: "ghost", kind: CommandDrawTile, raw: ``, wantErr: ErrInvalidSeat, notice: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, pub := newTestCoordinator(nil)
			joinBoth(t, c)
			before := c.Snapshot()
			pub.reset()

			err := c.Submit(context.Background(), tt.id, tt.kind, []byte(tt.raw))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			got := pub.to(tt.id)
			if tt.notice && (len(got) != 1 || got[0].event != "status") {
				t.Fatalf("notices = %+v, want one status", got)
			}
			if !tt.notice && len(pub.sent) != 0 {
				t.Fatalf("unexpected messages %+v", pub.sent)
			}
			if c.Snapshot() != before {
				t.Fatalf("rejected event changed session: %+v", c.Snapshot())
			}
		})
	}
}

func TestCoordinatorRejectFrame(t *testing.T) {
	ctx := context.Background()
	c, pub := newTestCoordinator(nil)
	_ = c.Join(ctx, "p1")
	pub.reset()

	if err := c.Reject(ctx, "p1", ErrMalformedFrame); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Reject() error = %v, want ErrMalformedFrame", err)
	}
	got := pub.to("p1")
	if len(got) != 1 || got[0].event != "status" || got[0].payload != ErrMalformedFrame.Error() {
		t.Fatalf("notices = %+v, want status %q", got, ErrMalformedFrame.Error())
	}

	pub.reset()
	if err := c.Reject(ctx, "ghost", ErrMalformedFrame); !errors.Is(err, ErrInvalidSeat) {
		t.Fatalf("Reject(ghost) error = %v, want ErrInvalidSeat", err)
	}
	if len(pub.sent) != 0 {
		t.Fatalf("unseated reject sent %+v", pub.sent)
	}
}

func TestCoordinatorLeave(t *testing.T) {
	ctx := context.Background()
	c, pub := newTestCoordinator(nil)
	joinBoth(t, c)
	_ = c.Submit(ctx, "p1", CommandDiscardTile, []byte(`"B"`))
	pub.reset()

	if err := c.Leave(ctx, "p1"); err != nil {
		t.Fatalf("Leave() error: %v", err)
	}
	got := pub.to("p2")
	if len(got) != 1 || got[0].event != "playerDisconnected" {
		t.Fatalf("p2 notices = %+v", got)
	}
	if !reflect.DeepEqual(pub.evicted, []string{"p2"}) {
		t.Fatalf("evicted = %v, want [p2]", pub.evicted)
	}
	snap := c.Snapshot()
	if snap.Status != domain.StatusWaiting || snap.SeatsTaken != 0 || snap.DeckRemaining != 0 {
		t.Fatalf("snapshot after leave = %+v", snap)
	}

	// The session is reusable once reset.
	pub.reset()
	if err := c.Join(ctx, "p3"); err != nil {
		t.Fatalf("Join(p3) after reset error: %v", err)
	}
	if got := pub.to("p3"); len(got) != 1 || got[0].payload != 0 {
		t.Fatalf("p3 notices = %+v, want seat 0", got)
	}
}

func TestCoordinatorLeaveUnseated(t *testing.T) {
	ctx := context.Background()
	c, pub := newTestCoordinator(nil)
	joinBoth(t, c)
	_ = c.Join(ctx, "p3")
	pub.reset()

	if err := c.Leave(ctx, "p3"); err != nil {
		t.Fatalf("Leave(p3) error: %v", err)
	}
	if len(pub.sent) != 0 || len(pub.evicted) != 0 {
		t.Fatalf("unseated leave produced %+v / %v", pub.sent, pub.evicted)
	}
	if snap := c.Snapshot(); snap.Status != domain.StatusPlaying || snap.SeatsTaken != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestCoordinatorWinRelaysHand(t *testing.T) {
	ctx := context.Background()
	c, pub := newTestCoordinator(nil)
	joinBoth(t, c)
	pub.reset()

	raw := []byte(`{"melds":[["A","A","A"]]}`)
	if err := c.Submit(ctx, "p1", CommandWinDeclaration, raw); err != nil {
		t.Fatalf("win error: %v", err)
	}
	for _, id := range []string{"p1", "p2"} {
		got := pub.to(id)
		if len(got) != 1 || got[0].event != "announceWinner" {
			t.Fatalf("%s notices = %+v", id, got)
		}
		p := got[0].payload.(AnnounceWinnerPayload)
		if p.Winner != 0 || !reflect.DeepEqual(p.Hand, json.RawMessage(raw)) {
			t.Fatalf("payload = %+v", p)
		}
	}

	pub.reset()
	err := c.Submit(ctx, "p2", CommandDrawTile, nil)
	if !errors.Is(err, ErrGameFinished) {
		t.Fatalf("draw after win error = %v, want ErrGameFinished", err)
	}

	pub.reset()
	if err := c.Submit(ctx, "p2", CommandWinDeclaration, []byte(`["B"]`)); err != nil {
		t.Fatalf("late win error: %v", err)
	}
	if got := pub.to("p1"); len(got) != 1 || got[0].event != "announceWinner" {
		t.Fatalf("late win notices = %+v", got)
	}
}

func TestCoordinatorTick(t *testing.T) {
	cfg := config.Default()
	cfg.ClaimTimeoutSeconds = 5
	ctx := context.Background()
	c, pub := newTestCoordinator(cfg)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.svc.now = func() time.Time { return start }
	joinBoth(t, c)
	_ = c.Submit(ctx, "p2", CommandDiscardTile, []byte(`"C"`))
	pub.reset()

	if err := c.Tick(ctx, start.Add(time.Second)); err != nil {
		t.Fatalf("early Tick() error: %v", err)
	}
	if len(pub.sent) != 0 {
		t.Fatalf("early tick sent %+v", pub.sent)
	}

	if err := c.Tick(ctx, start.Add(6*time.Second)); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if got := pub.to("p1"); len(got) != 1 || got[0].event != "yourTurnToDraw" {
		t.Fatalf("p1 after expiry = %+v", got)
	}
	if snap := c.Snapshot(); snap.Status != domain.StatusPlaying || snap.CurrentTurnSeat != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestCoordinatorPublishErrorSurfaces(t *testing.T) {
	c, pub := newTestCoordinator(nil)
	pub.err = errors.New("socket closed")

	err := c.Join(context.Background(), "p1")
	if err == nil || !errors.Is(err, pub.err) {
		t.Fatalf("Join() error = %v, want publish error", err)
	}
	if !c.Seated("p1") {
		t.Fatalf("publish failure should not undo the admission")
	}
}

func TestCoordinatorConcurrentSubmits(t *testing.T) {
	ctx := context.Background()
	c, pub := newTestCoordinator(nil)
	joinBoth(t, c)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = c.Submit(ctx, id, CommandDrawTile, nil)
		}([]string{"p1", "p2"}[i%2])
	}
	wg.Wait()

	draws := 0
	for _, m := range pub.sent {
		if m.event == "receiveTile" {
			draws++
		}
	}
	if draws != 40 {
		t.Fatalf("receiveTile count = %d, want 40", draws)
	}
	if snap := c.Snapshot(); snap.DeckRemaining != 12 {
		t.Fatalf("deck remaining = %d, want 12", snap.DeckRemaining)
	}
}
