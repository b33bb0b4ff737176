package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rsvpbot/src-server/dateparse"
	"rsvpbot/src-server/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent_Scenario(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Dates = dateparse.New(time.UTC) })

	p, err := env.engine.CreateEvent(context.Background(), "owner", "g1", "c1", "Standup tomorrow 9am", testNow)
	require.NoError(t, err)
	assert.True(t, p.DueAt.Equal(time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC)), p.DueAt.String())
	assert.Equal(t, "Standup", p.DisplayTitle)
	assert.Equal(t, "Standup", p.Title)

	// proposed events are neither stored nor armed
	all, err := env.store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, env.engine.Scheduled())

	func() {
		p, err := env.engine.CreateEvent(context.Background(), "owner", "g1", "c1", "Meet on 10/20 at 5pm", testNow)
		require.NoError(t, err)
		assert.True(t, p.DueAt.Equal(time.Date(2026, 10, 20, 17, 0, 0, 0, time.UTC)), p.DueAt.String())
		assert.Equal(t, "Meet", p.DisplayTitle)
	}()

	func() {
		_, err := env.engine.CreateEvent(context.Background(), "owner", "g1", "c1", "Meet 13/45", testNow)
		assert.ErrorIs(t, err, ErrDateParse)
	}()
}

func TestCreateEvent_StripsFirstMatchOnly(t *testing.T) {
	env := newTestEnv(t)

	p, err := env.engine.CreateEvent(context.Background(), "owner", "g1", "c1", "tomorrow: Retro, not tomorrow", testNow)
	require.NoError(t, err)
	assert.Equal(t, "Retro, not tomorrow", p.DisplayTitle)
	assert.Equal(t, ": Retro, not tomorrow", p.Title)
	assert.Equal(t, 0, p.Match.Start)
	assert.True(t, p.DueAt.Equal(testNow.Add(24*time.Hour)))
}

func TestCreateEvent_NoDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CreateEvent(context.Background(), "owner", "g1", "c1", "lunch with the team", testNow)
	assert.ErrorIs(t, err, ErrDateParse)
	assert.Zero(t, env.engine.Scheduled())
}

func TestCreateEvent_PastDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CreateEvent(context.Background(), "owner", "g1", "c1", "standup yesterday", testNow)
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestPublishEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.engine.CreateEvent(ctx, "owner", "g1", "c1", "Standup tomorrow", testNow)
	require.NoError(t, err)
	event, err := env.engine.PublishEvent(ctx, p)
	require.NoError(t, err)

	assert.NotZero(t, event.ID)
	assert.Equal(t, "msg-1", event.MessageID)
	assert.True(t, env.engine.IsEvent("msg-1"))
	assert.Equal(t, 1, env.engine.Scheduled())
	assert.Len(t, env.clock.Live(), 1)
	assert.Equal(t, DefaultEmojis().Controls(), env.chat.added)

	stored, err := env.store.FindByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "owner", stored.OwnerID)

	// the message is re-rendered once it has an id
	assert.Equal(t, event.Ref(), env.chat.lastEdit().embed.Footer.Text)
}

func TestPublishEvent_SendFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.sendErr = errors.New("missing access")

	p, err := env.engine.CreateEvent(ctx, "owner", "g1", "c1", "Standup tomorrow", testNow)
	require.NoError(t, err)
	_, err = env.engine.PublishEvent(ctx, p)
	assert.ErrorIs(t, err, ErrCollaborator)

	all, err := env.store.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, env.engine.Scheduled())
}

func TestCommitEvent_DuplicateMessage(t *testing.T) {
	env := newTestEnv(t)
	env.commit(t, "owner", "m1", time.Hour)

	_, err := env.engine.CommitEvent(context.Background(), PendingEvent{
		OwnerID: "owner", GuildID: "g1", ChannelID: "c1",
		DueAt: testNow.Add(2 * time.Hour), ReferenceTime: testNow,
	}, "m1")
	assert.ErrorIs(t, err, ErrCollaborator)
	assert.ErrorIs(t, err, model.ErrDuplicateMessage)

	// the first timer is untouched
	assert.Len(t, env.clock.Live(), 1)
}

func TestFire_NotifiesAndRemoves(t *testing.T) {
	env := newTestEnv(t)
	env.commit(t, "owner", "m1", time.Hour)
	env.chat.react("m1", "✅", model.Reactor{ID: "u1", Name: "alice"})
	env.chat.react("m1", "✅", model.Reactor{ID: "bot", Name: "rsvpbot", Bot: true})

	env.clock.Advance(time.Hour)

	require.Equal(t, 1, env.chat.sentCount())
	assert.Equal(t, "<@u1>: Standup", env.chat.sent[0].msg.Content)
	assert.False(t, env.engine.IsEvent("m1"))
	assert.EqualValues(t, 1, env.store.deletes.Load())
	assert.Equal(t, []string{"m1"}, env.chat.deleted)
}

func TestFire_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.commit(t, "owner", "m1", time.Hour)
	gen := env.engine.index.Generation("m1")
	require.NotZero(t, gen)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.engine.fire("m1", gen)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, env.chat.sentCount())
	assert.EqualValues(t, 1, env.store.deletes.Load())
	assert.Equal(t, 1, env.chat.deletedCount())
}

func TestFire_SendFailureStillRemoves(t *testing.T) {
	env := newTestEnv(t)
	env.commit(t, "owner", "m1", time.Hour)
	env.chat.sendErr = errors.New("gateway down")

	env.clock.Advance(time.Hour)

	assert.False(t, env.engine.IsEvent("m1"))
	assert.EqualValues(t, 1, env.store.deletes.Load())
}

func TestFire_AfterDeleteIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.commit(t, "owner", "m1", time.Hour)
	gen := env.engine.index.Generation("m1")

	require.NoError(t, env.engine.DeleteEvent(context.Background(), "owner", false, "m1"))
	env.engine.fire("m1", gen)

	assert.Zero(t, env.chat.sentCount())
	assert.EqualValues(t, 1, env.store.deletes.Load())
}

func TestUpdateEvent_ReplacesTimer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.commit(t, "owner", "m1", time.Hour)
	oldGen := env.engine.index.Generation("m1")
	oldTimer := env.clock.Live()[0]

	updated, err := env.engine.UpdateEvent(ctx, "owner", event.ID, "Retro next week", testNow)
	require.NoError(t, err)
	assert.Equal(t, "Retro", updated.DisplayTitle)
	assert.True(t, updated.DueAt().Equal(testNow.Add(7*24*time.Hour)))
	assert.Equal(t, 1, updated.Sequence)

	// exactly one live timer, at the new due date
	live := env.clock.Live()
	require.Len(t, live, 1)
	assert.True(t, live[0].at.Equal(updated.DueAt()))
	assert.True(t, oldTimer.stopped)

	// a callback of the old timer that was already running does nothing
	env.engine.fire("m1", oldGen)
	assert.Zero(t, env.chat.sentCount())
	assert.True(t, env.engine.IsEvent("m1"))

	// nothing at the old due date
	env.clock.Advance(time.Hour)
	assert.Zero(t, env.chat.sentCount())

	env.clock.Advance(7 * 24 * time.Hour)
	assert.Equal(t, 1, env.chat.sentCount())

	stored, err := env.store.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUpdateEvent_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.commit(t, "owner", "m1", time.Hour)

	_, err := env.engine.UpdateEvent(ctx, "intruder", event.ID, "Retro tomorrow", testNow)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.engine.UpdateEvent(ctx, "owner", event.ID, "Retro", testNow)
	assert.ErrorIs(t, err, ErrDateParse)

	_, err = env.engine.UpdateEvent(ctx, "owner", event.ID, "Retro yesterday", testNow)
	assert.ErrorIs(t, err, ErrPastDate)

	_, err = env.engine.UpdateEvent(ctx, "owner", 4242, "Retro tomorrow", testNow)
	assert.ErrorIs(t, err, ErrNotFound)

	// unchanged
	stored, err := env.store.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.DueAtUnixUTC, stored.DueAtUnixUTC)
	assert.Len(t, env.clock.Live(), 1)
}

func TestUpdateEvent_RearmsStoredEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	func() {
		// stored, never armed
		record := model.Event{MessageID: "m1", OwnerID: "owner", ChannelID: "c1", GuildID: "g1", Title: "Standup", DisplayTitle: "Standup"}
		record.SetDueAt(testNow.Add(time.Hour))
		require.NoError(t, env.store.Create(ctx, &record))
		require.Zero(t, env.engine.Scheduled())

		_, err := env.engine.UpdateEvent(ctx, "intruder", record.ID, "Retro tomorrow", testNow)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Zero(t, env.engine.Scheduled())

		updated, err := env.engine.UpdateEvent(ctx, "owner", record.ID, "Retro tomorrow", testNow)
		require.NoError(t, err)
		assert.Equal(t, testNow.Add(24*time.Hour).Unix(), updated.DueAtUnixUTC)
		assert.True(t, env.engine.IsEvent("m1"))
		require.Len(t, env.clock.Live(), 1)

		env.clock.Advance(24 * time.Hour)
		assert.Equal(t, 1, env.chat.sentCount())
		assert.False(t, env.engine.IsEvent("m1"))
	}()

	func() {
		// its fire couldn't delete it
		event := env.commit(t, "owner", "m2", time.Hour)
		env.store.deleteErr = errors.New("database is locked")
		env.clock.Advance(time.Hour)
		env.store.deleteErr = nil
		require.False(t, env.engine.IsEvent("m2"))
		assert.False(t, env.engine.index.Firing("m2"))

		_, err := env.engine.UpdateEvent(ctx, "owner", event.ID, "Retro tomorrow", env.clock.Now())
		require.NoError(t, err)
		assert.True(t, env.engine.IsEvent("m2"))
	}()
}

func TestUpdateEvent_WhileFiring(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.commit(t, "owner", "m1", time.Hour)

	// a fire that claimed the entry but hasn't deleted the record yet
	gen := env.engine.index.Generation("m1")
	unlock := env.engine.index.Lock("m1")
	_, claimed := env.engine.index.Claim("m1", gen)
	unlock()
	require.True(t, claimed)

	_, err := env.engine.UpdateEvent(ctx, "owner", event.ID, "Retro tomorrow", testNow)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, env.engine.IsEvent("m1"))

	unlock = env.engine.index.Lock("m1")
	env.engine.index.Release("m1", gen+1)
	unlock()
	assert.True(t, env.engine.index.Firing("m1"), "a newer generation doesn't release it")

	unlock = env.engine.index.Lock("m1")
	env.engine.index.Release("m1", gen)
	unlock()
	_, err = env.engine.UpdateEvent(ctx, "owner", event.ID, "Retro tomorrow", testNow)
	require.NoError(t, err)
	assert.True(t, env.engine.IsEvent("m1"))
}

func TestUpdateEvent_DeletedRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.commit(t, "owner", "m1", time.Hour)
	require.NoError(t, env.engine.DeleteEvent(ctx, "owner", false, "m1"))

	_, err := env.engine.UpdateEvent(ctx, "owner", event.ID, "Retro tomorrow", testNow)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, env.engine.Scheduled())
}

func TestDeleteEvent_Permission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.commit(t, "owner", "m1", time.Hour)

	err := env.engine.DeleteEvent(ctx, "intruder", true, "m1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.True(t, env.engine.IsEvent("m1"))
	assert.Len(t, env.clock.Live(), 1)
	_, err = env.store.FindByMessageID(ctx, "m1")
	assert.NoError(t, err)
	assert.Zero(t, env.chat.deletedCount())

	require.NoError(t, env.engine.DeleteEvent(ctx, "owner", false, "m1"))
	assert.False(t, env.engine.IsEvent("m1"))
	assert.Empty(t, env.clock.Live())
	_, err = env.store.FindByMessageID(ctx, "m1")
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestDeleteEvent_AdminPolicy(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.DeletePolicy = OwnerOrAdmin() })
	ctx := context.Background()
	env.commit(t, "owner", "m1", time.Hour)

	assert.ErrorIs(t, env.engine.DeleteEvent(ctx, "someone", false, "m1"), ErrPermissionDenied)
	assert.NoError(t, env.engine.DeleteEvent(ctx, "moderator", true, "m1"))
}

func TestDeleteEvent_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	env.commit(t, "owner", "m1", time.Hour)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = env.engine.DeleteEvent(context.Background(), "owner", false, "m1")
		}()
	}
	wg.Wait()

	ok, notFound := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			notFound++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)
	assert.EqualValues(t, 1, env.store.deletes.Load())
	assert.Equal(t, 1, env.chat.deletedCount())
}

func TestInitialize_OverdueFiresImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	overdue := model.Event{MessageID: "old", OwnerID: "owner", ChannelID: "c1", GuildID: "g1", DisplayTitle: "Missed"}
	overdue.SetDueAt(testNow.Add(-time.Hour))
	upcoming := model.Event{MessageID: "new", OwnerID: "owner", ChannelID: "c1", GuildID: "g1", DisplayTitle: "Later"}
	upcoming.SetDueAt(testNow.Add(time.Hour))
	require.NoError(t, env.store.Create(ctx, &overdue))
	require.NoError(t, env.store.Create(ctx, &upcoming))

	require.NoError(t, env.engine.Initialize(ctx))
	require.NoError(t, env.engine.Initialize(ctx))
	assert.Equal(t, 2, env.engine.Scheduled())
	assert.Len(t, env.clock.All(), 2)

	// next dispatch cycle
	env.clock.Advance(0)
	require.Equal(t, 1, env.chat.sentCount())
	assert.Equal(t, "⏰ Missed", env.chat.sent[0].msg.Content)
	assert.False(t, env.engine.IsEvent("old"))
	assert.True(t, env.engine.IsEvent("new"))

	_, err := env.store.FindByMessageID(ctx, "old")
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestInitialize_SkipsBrokenRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	broken := model.Event{MessageID: "broken", OwnerID: "owner", ChannelID: "c1", GuildID: "g1", DisplayTitle: "No date"}
	_, err := env.store.db.NewInsert().Model(&broken).Exec(ctx)
	require.NoError(t, err)
	valid := model.Event{MessageID: "valid", OwnerID: "owner", ChannelID: "c1", GuildID: "g1", DisplayTitle: "Later"}
	valid.SetDueAt(testNow.Add(time.Hour))
	require.NoError(t, env.store.Create(ctx, &valid))

	require.NoError(t, env.engine.Initialize(ctx))
	assert.Equal(t, 1, env.engine.Scheduled())
	assert.True(t, env.engine.IsEvent("valid"))
	assert.False(t, env.engine.IsEvent("broken"))

	// left in the store for the next start
	stored, err := env.store.FindByMessageID(ctx, "broken")
	require.NoError(t, err)
	assert.Zero(t, stored.DueAtUnixUTC)
}

func TestListAndShow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	later := env.commit(t, "owner", "m1", 2*time.Hour)
	sooner := env.commit(t, "owner", "m2", time.Hour)

	events, err := env.engine.ListEvents(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, sooner.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)

	empty, err := env.engine.ListEvents(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, empty)

	shown, err := env.engine.ShowEvent(ctx, "g1", later.ID)
	require.NoError(t, err)
	assert.Equal(t, "m1", shown.MessageID)

	_, err = env.engine.ShowEvent(ctx, "g2", later.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStop_KeepsRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.commit(t, "owner", "m1", time.Hour)

	env.engine.Stop()
	assert.Zero(t, env.engine.Scheduled())
	env.clock.Advance(time.Hour)
	assert.Zero(t, env.chat.sentCount())

	_, err := env.store.FindByMessageID(ctx, "m1")
	assert.NoError(t, err)
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(ErrDateParse), "parse")
	assert.Contains(t, UserMessage(ErrPastDate), "future")
	assert.Contains(t, UserMessage(ErrPermissionDenied), "permission")
	assert.Equal(t, "Couldn't find that event.", UserMessage(ErrNotFound))
	assert.Equal(t, "Something went wrong, please try again later.", UserMessage(errors.New("sqlite: disk I/O error")))
}
