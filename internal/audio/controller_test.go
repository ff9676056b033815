package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reveal-terminal/internal/frameclock"
	"reveal-terminal/internal/logging"
)

const (
	ambientTrack TrackRef = "/audio/christmas.mp3"
	themeA       TrackRef = "/audio/alicia.mp3"
	themeB       TrackRef = "/audio/down-by-the-river.mp3"
)

var epoch = time.Date(2024, time.December, 24, 18, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, block bool) (*Controller, *MemoryBackend, *frameclock.Scheduler) {
	t.Helper()
	clock := frameclock.New(epoch)
	backend := NewMemoryBackend(block, WithHistory())
	return NewController(clock, backend, ambientTrack, logging.Discard()), backend, clock
}

func TestStartAmbientPlaysAtNominalVolume(t *testing.T) {
	c, backend, _ := newTestController(t, false)

	require.NoError(t, c.StartAmbient())
	require.Len(t, backend.Opened(), 1)

	h := backend.Opened()[0]
	assert.Equal(t, ambientTrack, h.Track())
	assert.True(t, h.Playing())
	assert.InDelta(t, NominalVolume, h.Volume(), 1e-9)
}

func TestStartAmbientIsIdempotent(t *testing.T) {
	c, backend, _ := newTestController(t, false)

	require.NoError(t, c.StartAmbient())
	require.NoError(t, c.StartAmbient())
	assert.Len(t, backend.Opened(), 1)
}

func TestStartAmbientBlockedDegradesToSilence(t *testing.T) {
	c, backend, _ := newTestController(t, true)

	err := c.StartAmbient()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlaybackBlocked))
	assert.Nil(t, c.Status().Current)
	assert.True(t, backend.Opened()[0].Released())
}

func TestFadeOutCurrentRampsLinearlyThenReleases(t *testing.T) {
	c, backend, clock := newTestController(t, false)
	require.NoError(t, c.StartAmbient())
	h := backend.Opened()[0]

	c.FadeOutCurrent(AmbientFadeOut)
	assert.Nil(t, c.Status().Current)
	require.NotNil(t, c.Status().Outgoing)

	clock.AdvanceBy(AmbientFadeOut / 2)
	assert.InDelta(t, NominalVolume/2, h.Volume(), 1e-9)
	assert.True(t, h.Playing())

	clock.AdvanceBy(AmbientFadeOut / 2)
	assert.Zero(t, h.Volume())
	assert.False(t, h.Playing())
	assert.True(t, h.Released())
	assert.Nil(t, c.Status().Outgoing)
	assert.Zero(t, clock.Pending())
}

func TestFadeOutCurrentWithoutVoiceIsNoop(t *testing.T) {
	c, _, clock := newTestController(t, false)
	c.FadeOutCurrent(time.Second)
	assert.Zero(t, clock.Pending())
	assert.Equal(t, Status{}, c.Status())
}

func TestOverlappingFadeOutsReleaseOnce(t *testing.T) {
	c, backend, clock := newTestController(t, false)
	require.NoError(t, c.StartAmbient())

	c.FadeOutCurrent(AmbientFadeOut)
	c.FadeOutCurrent(AmbientFadeOut)
	clock.AdvanceBy(2 * AmbientFadeOut)

	h := backend.Opened()[0]
	assert.True(t, h.Released())
	assert.ErrorIs(t, h.Play(), ErrHandleReleased)
}

func TestFadeInNewRampsToTarget(t *testing.T) {
	c, backend, clock := newTestController(t, false)

	require.NoError(t, c.FadeInNew(themeA, ThemeFadeIn, NominalVolume))
	h := backend.Opened()[0]
	assert.Zero(t, h.Volume())
	assert.True(t, h.Playing())

	clock.AdvanceBy(ThemeFadeIn)
	assert.InDelta(t, NominalVolume, h.Volume(), 1e-9)
	require.NotNil(t, c.Status().Current)
	assert.Equal(t, themeA, c.Status().Current.Track)
}

func TestFadeInNewBlockedLeavesNoCurrent(t *testing.T) {
	c, _, clock := newTestController(t, true)

	err := c.FadeInNew(themeA, ThemeFadeIn, NominalVolume)
	assert.ErrorIs(t, err, ErrPlaybackBlocked)
	assert.Nil(t, c.Status().Current)
	assert.Zero(t, clock.Pending())
}

func TestSwapInstantRunsBothFadesConcurrently(t *testing.T) {
	c, backend, clock := newTestController(t, false)
	require.NoError(t, c.FadeInNew(themeA, ThemeFadeIn, NominalVolume))
	clock.AdvanceBy(ThemeFadeIn)

	require.NoError(t, c.SwapInstant(themeB, NominalVolume))
	outgoing, incoming := backend.Opened()[0], backend.Opened()[1]

	clock.AdvanceBy(250 * time.Millisecond)
	assert.Greater(t, outgoing.Volume(), 0.0, "outgoing still fading")
	assert.Greater(t, incoming.Volume(), 0.0, "incoming already rising")
	assert.Less(t, outgoing.Volume(), NominalVolume)
	assert.Equal(t, 2, c.Status().Audible())

	clock.AdvanceBy(SwapFadeOut)
	assert.True(t, outgoing.Released())
	assert.Equal(t, 1, c.Status().Audible())

	clock.AdvanceBy(ThemeFadeIn)
	assert.InDelta(t, NominalVolume, incoming.Volume(), 1e-9)
	assert.Equal(t, 1, c.Status().Audible())
	assert.Equal(t, themeB, c.Status().Current.Track)
}

func TestRapidSwapsKeepOneOutgoing(t *testing.T) {
	c, backend, clock := newTestController(t, false)
	require.NoError(t, c.StartAmbient())

	require.NoError(t, c.SwapInstant(themeA, NominalVolume))
	clock.AdvanceBy(100 * time.Millisecond)
	require.NoError(t, c.SwapInstant(themeB, NominalVolume))

	opened := backend.Opened()
	require.Len(t, opened, 3)
	assert.True(t, opened[0].Released(), "older outgoing voice discarded")
	assert.False(t, opened[1].Released(), "previous current is now the outgoing voice")

	clock.AdvanceBy(SwapFadeOut)
	assert.True(t, opened[1].Released())
	assert.LessOrEqual(t, c.Status().Audible(), 1)
}

func TestTeardownReleasesEverything(t *testing.T) {
	c, backend, clock := newTestController(t, false)
	require.NoError(t, c.StartAmbient())
	require.NoError(t, c.SwapInstant(themeA, NominalVolume))

	c.Teardown()
	for _, h := range backend.Opened() {
		assert.True(t, h.Released())
	}
	clock.AdvanceBy(5 * time.Second)
	assert.Equal(t, Status{}, c.Status())
}

func TestPlayingMatchesCurrentTrack(t *testing.T) {
	c, _, clock := newTestController(t, false)
	assert.False(t, c.Playing(ambientTrack))

	require.NoError(t, c.StartAmbient())
	assert.True(t, c.Playing(ambientTrack))
	assert.False(t, c.Playing(themeA))

	require.NoError(t, c.SwapInstant(themeA, NominalVolume))
	assert.True(t, c.Playing(themeA), "a voice ramping in counts as playing")
	assert.False(t, c.Playing(ambientTrack), "the outgoing voice is not current")

	c.FadeOutCurrent(SwapFadeOut)
	clock.AdvanceBy(time.Second)
	assert.False(t, c.Playing(themeA))
}

func TestPlayingFalseWhenBlocked(t *testing.T) {
	c, _, _ := newTestController(t, true)
	require.Error(t, c.FadeInNew(themeA, ThemeFadeIn, NominalVolume))
	assert.False(t, c.Playing(themeA))
}

func TestMemoryBackendKeepsNoHandlesWithoutHistory(t *testing.T) {
	backend := NewMemoryBackend(false)
	c := NewController(frameclock.New(epoch), backend, ambientTrack, logging.Discard())

	require.NoError(t, c.StartAmbient())
	for i := 0; i < 10; i++ {
		require.NoError(t, c.SwapInstant(themeA, NominalVolume))
		require.NoError(t, c.SwapInstant(themeB, NominalVolume))
	}
	assert.Empty(t, backend.Opened())
	assert.True(t, c.Playing(themeB))
}
