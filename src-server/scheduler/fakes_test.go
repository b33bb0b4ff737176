package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rsvpbot/src-server/dateparse"
	"rsvpbot/src-server/model"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Monday
var testNow = time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

// #region - clock

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock and runs the callbacks that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	due := make([]*fakeTimer, 0)
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// Live lists timers that are neither stopped nor fired.
func (c *fakeClock) Live() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := make([]*fakeTimer, 0)
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	return live
}

func (c *fakeClock) All() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

// #endregion

// #region - chat

type sentMessage struct {
	channelID string
	messageID string
	msg       *discordgo.MessageSend
}

type editedMessage struct {
	messageID string
	embed     *discordgo.MessageEmbed
}

type removal struct {
	messageID string
	emoji     string
	userID    string
}

type fakeChat struct {
	mu        sync.Mutex
	nextID    int
	reactions map[string]map[string][]model.Reactor
	sent      []sentMessage
	edits     []editedMessage
	deleted   []string
	added     []string
	removed   []removal

	sendErr   error
	removeErr error
	fetchErr  error
}

func newFakeChat() *fakeChat {
	return &fakeChat{reactions: make(map[string]map[string][]model.Reactor)}
}

func (c *fakeChat) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.nextID++
	id := fmt.Sprintf("msg-%d", c.nextID)
	c.sent = append(c.sent, sentMessage{channelID: channelID, messageID: id, msg: msg})
	return id, nil
}

func (c *fakeChat) EditMessage(_ context.Context, _, messageID string, embed *discordgo.MessageEmbed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, editedMessage{messageID: messageID, embed: embed})
	return nil
}

func (c *fakeChat) DeleteMessage(_ context.Context, _, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, messageID)
	return nil
}

func (c *fakeChat) AddReaction(_ context.Context, _, messageID, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, emoji)
	return nil
}

func (c *fakeChat) FetchReactors(_ context.Context, _, messageID, emoji string) ([]model.Reactor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return append([]model.Reactor(nil), c.reactions[messageID][emoji]...), nil
}

func (c *fakeChat) RemoveReaction(_ context.Context, _, messageID, emoji, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removeErr != nil {
		return c.removeErr
	}
	c.removed = append(c.removed, removal{messageID: messageID, emoji: emoji, userID: userID})
	kept := make([]model.Reactor, 0)
	for _, r := range c.reactions[messageID][emoji] {
		if r.ID != userID {
			kept = append(kept, r)
		}
	}
	if c.reactions[messageID] != nil {
		c.reactions[messageID][emoji] = kept
	}
	return nil
}

func (c *fakeChat) CleanContent(_ context.Context, _, text string) string {
	return text
}

// react puts a reaction on the fake platform, as a user would.
func (c *fakeChat) react(messageID, emoji string, r model.Reactor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reactions[messageID] == nil {
		c.reactions[messageID] = make(map[string][]model.Reactor)
	}
	c.reactions[messageID][emoji] = append(c.reactions[messageID][emoji], r)
}

func (c *fakeChat) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeChat) deletedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deleted)
}

func (c *fakeChat) lastEdit() editedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.edits) == 0 {
		return editedMessage{}
	}
	return c.edits[len(c.edits)-1]
}

// #endregion

// #region - store & dates

type countingStore struct {
	*model.EventStore
	db        *bun.DB
	deletes   atomic.Int32
	deleteErr error
}

func (s *countingStore) Delete(ctx context.Context, messageID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if err := s.EventStore.Delete(ctx, messageID); err != nil {
		return err
	}
	s.deletes.Add(1)
	return nil
}

func newTestStore(t *testing.T) *countingStore {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })
	require.NoError(t, model.CreateSchema(context.Background(), db))
	return &countingStore{EventStore: model.NewEventStore(db), db: db}
}

// fakeDates knows three phrases.
type fakeDates struct{}

func (fakeDates) Parse(text string, ref time.Time) ([]dateparse.Match, error) {
	for phrase, offset := range map[string]time.Duration{
		"tomorrow":  24 * time.Hour,
		"next week": 7 * 24 * time.Hour,
		"yesterday": -24 * time.Hour,
	} {
		if i := strings.Index(text, phrase); i >= 0 {
			return []dateparse.Match{{Start: i, End: i + len(phrase), Text: phrase, At: ref.Add(offset)}}, nil
		}
	}
	return nil, nil
}

// #endregion

type testEnv struct {
	engine *Engine
	clock  *fakeClock
	chat   *fakeChat
	store  *countingStore
}

func newTestEnv(t *testing.T, tweak ...func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		clock: newFakeClock(testNow),
		chat:  newFakeChat(),
		store: newTestStore(t),
	}
	opts := Options{
		Store:         env.store,
		Chat:          env.chat,
		Dates:         fakeDates{},
		Clock:         env.clock,
		RetryAttempts: 2,
		RetryBackOff:  func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
	for _, f := range tweak {
		f(&opts)
	}
	env.engine = NewEngine(opts)
	t.Cleanup(env.engine.Stop)
	return env
}

// commit schedules an event due in d without going through the chat.
func (env *testEnv) commit(t *testing.T, owner, messageID string, d time.Duration) model.Event {
	t.Helper()
	p := PendingEvent{
		ProposalID:    uuid.New(),
		OwnerID:       owner,
		GuildID:       "g1",
		ChannelID:     "c1",
		Title:         "Standup",
		DisplayTitle:  "Standup",
		DueAt:         env.clock.Now().Add(d),
		ReferenceTime: env.clock.Now(),
	}
	event, err := env.engine.CommitEvent(context.Background(), p, messageID)
	require.NoError(t, err)
	return event
}
