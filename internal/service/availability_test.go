package service

import (
	"context"
	"testing"
	"time"

	apperrors "ovation/internal/errors"
	"ovation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAvailabilityFixture(t *testing.T) (*AvailabilityService, *HoldService, *fakeDB, *testClock) {
	t.Helper()
	db := newFakeDB()
	clk := newTestClock(testStart)
	avail := NewAvailabilityService(db, db, nil, clk)
	holds := NewHoldService(db, db, db, nil, nil, clk, 30*time.Minute)
	return avail, holds, db, clk
}

func remainingOf(t *testing.T, resp *models.AvailabilityResponse, key string) int {
	t.Helper()
	for _, u := range resp.Units {
		if u.UnitKey == key {
			return u.Remaining
		}
	}
	t.Fatalf("unit %s not in snapshot", key)
	return 0
}

func TestSnapshot(t *testing.T) {
	avail, holds, db, _ := newAvailabilityFixture(t)
	db.addUnit("A-1", models.UnitSeat, 1, 5000)
	db.addUnit("general", models.UnitClass, 10, 2000)

	_, err := holds.AcquireOrRenew(context.Background(), &models.AcquireHoldRequest{
		EventID: 1, ScheduleID: 1,
		Units: []models.UnitRequest{
			{UnitKey: "A-1"},
			{UnitKey: "general", Quantity: 4},
		},
	})
	require.NoError(t, err)

	resp, err := avail.Snapshot(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.EventID)
	assert.Len(t, resp.Units, 2)
	assert.Equal(t, 0, remainingOf(t, resp, "A-1"))
	assert.Equal(t, 6, remainingOf(t, resp, "general"))
}

func TestSnapshot_ExpiredHoldExcluded(t *testing.T) {
	avail, holds, db, clk := newAvailabilityFixture(t)
	db.addUnit("general", models.UnitClass, 10, 2000)

	_, err := holds.AcquireOrRenew(context.Background(), &models.AcquireHoldRequest{
		EventID: 1, ScheduleID: 1,
		Units: []models.UnitRequest{{UnitKey: "general", Quantity: 4}},
	})
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)

	resp, err := avail.Snapshot(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, remainingOf(t, resp, "general"))
}

func TestSnapshot_UnknownSchedule(t *testing.T) {
	avail, _, _, _ := newAvailabilityFixture(t)

	_, err := avail.Snapshot(context.Background(), 1, 99)
	assert.ErrorIs(t, err, apperrors.ErrScheduleNotFound)
}

func TestSnapshot_ClampsNegativeRemaining(t *testing.T) {
	avail, _, db, _ := newAvailabilityFixture(t)
	db.addUnit("general", models.UnitClass, 2, 2000)

	// Seed an impossible state: more claimed than capacity.
	db.holds["broken"] = models.Hold{
		ID: 1, Code: "broken", EventID: 1, ScheduleID: 1,
		Claims:    []models.HoldClaim{{UnitKey: "general", Quantity: 5}},
		ExpiresAt: testStart.Add(time.Hour),
	}

	resp, err := avail.Snapshot(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remainingOf(t, resp, "general"), "negative remaining clamps to zero")
}
