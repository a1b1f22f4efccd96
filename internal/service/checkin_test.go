package service

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "ovation/internal/errors"
	"ovation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckinFixture(t *testing.T, ticketStatus, orderStatus string) (*CheckinService, *fakeDB) {
	t.Helper()
	db := newFakeDB()
	db.orders["order-1"] = models.Order{ID: "order-1", EventID: 1, ScheduleID: 1, Status: orderStatus}
	db.tickets["ticket-1"] = models.Ticket{
		ID: "ticket-1", OrderID: "order-1", EventID: 1, ScheduleID: 1,
		UnitKey: "A-1", TicketCode: "tick-abc", Status: ticketStatus,
	}
	svc := NewCheckinService(db, &fakePublisher{}, newTestClock(testStart))
	return svc, db
}

func TestCheckin(t *testing.T) {
	svc, _ := newCheckinFixture(t, models.TicketBooked, models.OrderCompleted)

	resp, err := svc.Checkin(context.Background(), &models.CheckinRequest{
		TicketCode: "tick-abc", OperatorID: "gate-7",
	})
	require.NoError(t, err)
	assert.False(t, resp.AlreadyCheckedIn)
	assert.Equal(t, "tick-abc", resp.TicketCode)
	assert.Equal(t, "gate-7", resp.OperatorID)
	assert.Equal(t, testStart, resp.CheckedInAt)
}

func TestCheckin_UnknownTicket(t *testing.T) {
	svc, _ := newCheckinFixture(t, models.TicketBooked, models.OrderCompleted)

	_, err := svc.Checkin(context.Background(), &models.CheckinRequest{
		TicketCode: "no-such-ticket", OperatorID: "gate-7",
	})
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestCheckin_PendingTicketRejected(t *testing.T) {
	svc, _ := newCheckinFixture(t, models.TicketPendingPayment, models.OrderProcessing)

	_, err := svc.Checkin(context.Background(), &models.CheckinRequest{
		TicketCode: "tick-abc", OperatorID: "gate-7",
	})
	assert.ErrorIs(t, err, apperrors.ErrTicketNotBooked)
}

func TestCheckin_IncompleteOrderRejected(t *testing.T) {
	// A booked ticket whose order somehow regressed is still turned away.
	svc, _ := newCheckinFixture(t, models.TicketBooked, models.OrderProcessing)

	_, err := svc.Checkin(context.Background(), &models.CheckinRequest{
		TicketCode: "tick-abc", OperatorID: "gate-7",
	})
	assert.ErrorIs(t, err, apperrors.ErrOrderNotCompleted)
}

func TestCheckin_SecondScanReportsOriginal(t *testing.T) {
	svc, _ := newCheckinFixture(t, models.TicketBooked, models.OrderCompleted)

	first, err := svc.Checkin(context.Background(), &models.CheckinRequest{
		TicketCode: "tick-abc", OperatorID: "gate-7",
	})
	require.NoError(t, err)

	second, err := svc.Checkin(context.Background(), &models.CheckinRequest{
		TicketCode: "tick-abc", OperatorID: "gate-9",
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyCheckedIn)
	assert.Equal(t, "gate-7", second.OperatorID, "the original operator is reported")
	assert.Equal(t, first.CheckedInAt, second.CheckedInAt)
}

func TestCheckin_ConcurrentScansAdmitOnce(t *testing.T) {
	svc, _ := newCheckinFixture(t, models.TicketBooked, models.OrderCompleted)

	const scans = 10
	var wg sync.WaitGroup
	responses := make([]*models.CheckinResponse, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Checkin(context.Background(), &models.CheckinRequest{
				TicketCode: "tick-abc", OperatorID: "gate-7",
			})
			if err != nil {
				t.Error(err)
				return
			}
			responses[i] = resp
		}(i)
	}
	wg.Wait()

	admitted := 0
	var winner time.Time
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		if !resp.AlreadyCheckedIn {
			admitted++
			winner = resp.CheckedInAt
		}
	}
	assert.Equal(t, 1, admitted, "exactly one scan may admit")
	for _, resp := range responses {
		if resp != nil {
			assert.Equal(t, winner, resp.CheckedInAt, "every scan reports the winning record")
		}
	}
}
