package service

import (
	"context"

	"ovation/internal/clock"
	apperrors "ovation/internal/errors"
	"ovation/internal/models"
	"ovation/internal/monitoring"
	"ovation/internal/repository"
)

// CheckinService consumes tickets at the gate. Exactly-once admission rests
// on the storage constraint of one active record per ticket code, not on any
// in-process state, so concurrent scans across instances are safe.
type CheckinService struct {
	checkins checkinStore
	pub      eventPublisher
	clock    clock.Clock
}

func NewCheckinService(checkins checkinStore, pub eventPublisher, clk clock.Clock) *CheckinService {
	return &CheckinService{checkins: checkins, pub: pub, clock: clk}
}

// Checkin admits a booked ticket. The second and every later scan of the
// same code reports the original admission instead of creating another.
func (s *CheckinService) Checkin(ctx context.Context, req *models.CheckinRequest) (*models.CheckinResponse, error) {
	ticket, err := s.checkins.GetTicketByCode(ctx, req.TicketCode)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		monitoring.CheckinsTotal.WithLabelValues("not_found").Inc()
		return nil, apperrors.ErrTicketNotFound
	}
	if ticket.Status != models.TicketBooked {
		monitoring.CheckinsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.ErrTicketNotBooked
	}
	orderStatus, err := s.checkins.GetOrderStatus(ctx, ticket.OrderID)
	if err != nil {
		return nil, err
	}
	if orderStatus != models.OrderCompleted {
		monitoring.CheckinsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.ErrOrderNotCompleted
	}

	record := &models.CheckinRecord{
		TicketCode:  req.TicketCode,
		OperatorID:  req.OperatorID,
		CheckedInAt: s.clock.Now(),
	}
	err = s.checkins.InsertRecord(ctx, record)
	if err == repository.ErrDuplicateCheckin {
		// A concurrent or earlier scan won; report its record unchanged.
		winner, err := s.checkins.GetActiveRecord(ctx, req.TicketCode)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, apperrors.ErrTicketNotFound
		}
		monitoring.CheckinsTotal.WithLabelValues("duplicate").Inc()
		return &models.CheckinResponse{
			AlreadyCheckedIn: true,
			TicketCode:       winner.TicketCode,
			OperatorID:       winner.OperatorID,
			CheckedInAt:      winner.CheckedInAt,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	monitoring.CheckinsTotal.WithLabelValues("admitted").Inc()
	if s.pub != nil {
		_ = s.pub.Publish(models.EventTicketCheckedIn, models.TicketCheckedInEvent{
			TicketCode:  record.TicketCode,
			OperatorID:  record.OperatorID,
			CheckedInAt: record.CheckedInAt,
			Timestamp:   record.CheckedInAt,
		})
	}

	return &models.CheckinResponse{
		AlreadyCheckedIn: false,
		TicketCode:       record.TicketCode,
		OperatorID:       record.OperatorID,
		CheckedInAt:      record.CheckedInAt,
	}, nil
}
