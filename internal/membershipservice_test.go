package internal

import (
	"testing"

	"github.com/quickcourt/quickcourt/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func setupMembership(t *testing.T, max int, visibility string) (*fakeEventRepo, MembershipService, *models.Event) {
	t.Helper()
	repo := newFakeEventRepo()
	es := NewEventService(repo, testLogger())
	in := validEvent()
	in.MaxParticipants = max
	in.Visibility = visibility
	ev, err := es.Create(context.Background(), in, "Olive Organizer")
	require.NoError(t, err)
	return repo, NewMembershipService(repo, testLogger()), ev
}

func TestMembershipJoin(t *testing.T) {
	_, ms, ev := setupMembership(t, 2, models.VisibilityPublic)
	ctx := context.Background()

	res, err := ms.Join(ctx, ev.ID, "Alice Adams", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusJoined, res.Status)
	assert.Zero(t, res.Position)
	require.Len(t, res.Event.Participants, 1)

	_, err = ms.Join(ctx, ev.ID, "Bob Barker", "")
	require.NoError(t, err)

	res, err = ms.Join(ctx, ev.ID, "Carol Chu", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitlisted, res.Status)
	assert.Equal(t, 1, res.Position)
}

func TestMembershipJoinTwice(t *testing.T) {
	_, ms, ev := setupMembership(t, 2, models.VisibilityPublic)
	ctx := context.Background()

	_, err := ms.Join(ctx, ev.ID, "Alice Adams", "")
	require.NoError(t, err)
	_, err = ms.Join(ctx, ev.ID, "Alice Adams", "")
	requireHTTPError(t, err, 409, ErrCodeAlreadyJoined)
}

func TestMembershipJoinInviteOnly(t *testing.T) {
	repo, ms, ev := setupMembership(t, 2, models.VisibilityInviteOnly)
	ctx := context.Background()

	_, err := ms.Join(ctx, ev.ID, "Alice Adams", "")
	requireHTTPError(t, err, 403, ErrCodeInvalidPasscode)
	_, err = ms.Join(ctx, ev.ID, "Alice Adams", "WRONG1")
	requireHTTPError(t, err, 403, ErrCodeInvalidPasscode)

	stored, _ := repo.GetByID(ev.ID)
	assert.Empty(t, stored.Participants)

	res, err := ms.Join(ctx, ev.ID, "Alice Adams", ev.Passcode)
	require.NoError(t, err)
	assert.Equal(t, models.StatusJoined, res.Status)
}

func TestMembershipJoinUnknownEvent(t *testing.T) {
	_, ms, _ := setupMembership(t, 2, models.VisibilityPublic)

	_, err := ms.Join(context.Background(), "no-such-id", "Alice Adams", "")
	requireHTTPError(t, err, 404, ErrCodeEventNotFound)
}

func TestMembershipLeavePromotes(t *testing.T) {
	_, ms, ev := setupMembership(t, 2, models.VisibilityPublic)
	ctx := context.Background()

	for _, name := range []string{"Alice Adams", "Bob Barker", "Carol Chu", "Dan Deng"} {
		_, err := ms.Join(ctx, ev.ID, name, "")
		require.NoError(t, err)
	}

	after, err := ms.Leave(ctx, ev.ID, "Alice Adams")
	require.NoError(t, err)
	require.Len(t, after.Participants, 2)
	assert.Equal(t, "Bob Barker", after.Participants[0].Name)
	assert.Equal(t, "Carol Chu", after.Participants[1].Name)
	require.Len(t, after.Waitlist, 1)
	assert.Equal(t, "Dan Deng", after.Waitlist[0].Name)
}

func TestMembershipLeaveFromWaitlist(t *testing.T) {
	_, ms, ev := setupMembership(t, 1, models.VisibilityPublic)
	ctx := context.Background()

	for _, name := range []string{"Alice Adams", "Bob Barker", "Carol Chu"} {
		_, err := ms.Join(ctx, ev.ID, name, "")
		require.NoError(t, err)
	}

	// Leaving the waitlist shifts the queue but promotes nobody
	after, err := ms.Leave(ctx, ev.ID, "Bob Barker")
	require.NoError(t, err)
	require.Len(t, after.Participants, 1)
	assert.Equal(t, "Alice Adams", after.Participants[0].Name)
	require.Len(t, after.Waitlist, 1)
	assert.Equal(t, "Carol Chu", after.Waitlist[0].Name)
}

func TestMembershipLeaveNotAParticipant(t *testing.T) {
	_, ms, ev := setupMembership(t, 2, models.VisibilityPublic)

	_, err := ms.Leave(context.Background(), ev.ID, "Nobody Nix")
	requireHTTPError(t, err, 404, ErrCodeNotAParticipant)
}

func TestMembershipTogglePaid(t *testing.T) {
	_, ms, ev := setupMembership(t, 2, models.VisibilityPublic)
	ctx := context.Background()

	_, err := ms.Join(ctx, ev.ID, "Alice Adams", "")
	require.NoError(t, err)

	after, err := ms.TogglePaid(ctx, ev.ID, "Olive Organizer", "Alice Adams")
	require.NoError(t, err)
	require.Len(t, after.Participants, 1)
	assert.True(t, after.Participants[0].Paid)

	after, err = ms.TogglePaid(ctx, ev.ID, "Olive Organizer", "Alice Adams")
	require.NoError(t, err)
	assert.False(t, after.Participants[0].Paid)
}

func TestMembershipTogglePaidOrganizerOnly(t *testing.T) {
	repo, ms, ev := setupMembership(t, 2, models.VisibilityPublic)
	ctx := context.Background()

	_, err := ms.Join(ctx, ev.ID, "Alice Adams", "")
	require.NoError(t, err)

	_, err = ms.TogglePaid(ctx, ev.ID, "Alice Adams", "Alice Adams")
	requireHTTPError(t, err, 403, ErrCodeNotAuthorized)

	stored, _ := repo.GetByID(ev.ID)
	assert.False(t, stored.Participants[0].Paid)
}

func TestMembershipTogglePaidOnWaitlisted(t *testing.T) {
	_, ms, ev := setupMembership(t, 1, models.VisibilityPublic)
	ctx := context.Background()

	_, err := ms.Join(ctx, ev.ID, "Alice Adams", "")
	require.NoError(t, err)
	_, err = ms.Join(ctx, ev.ID, "Bob Barker", "")
	require.NoError(t, err)

	_, err = ms.TogglePaid(ctx, ev.ID, "Olive Organizer", "Bob Barker")
	requireHTTPError(t, err, 404, ErrCodeNotAParticipant)
}

func TestMembershipListings(t *testing.T) {
	_, ms, ev := setupMembership(t, 1, models.VisibilityPublic)
	ctx := context.Background()

	_, err := ms.Join(ctx, ev.ID, "Alice Adams", "")
	require.NoError(t, err)
	_, err = ms.Join(ctx, ev.ID, "Bob Barker", "")
	require.NoError(t, err)

	roster, err := ms.Participants(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Alice Adams", roster[0].Name)

	queue, err := ms.Waitlist(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "Bob Barker", queue[0].Name)

	_, err = ms.Participants(ctx, "no-such-id")
	requireHTTPError(t, err, 404, ErrCodeEventNotFound)
}
