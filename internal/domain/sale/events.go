package sale

import "time"

// RecordedEvent is published after a sale has been durably recorded.
type RecordedEvent struct {
	SaleID     string
	ProductID  string
	Quantity   int
	Status     Status
	Reason     string
	OccurredAt time.Time
}

func (RecordedEvent) EventName() string { return "sale.recorded" }

func NewRecordedEvent(s *Sale) RecordedEvent {
	return RecordedEvent{
		SaleID:     s.ID,
		ProductID:  s.ProductID,
		Quantity:   s.Quantity,
		Status:     s.Status,
		Reason:     s.FailureReason,
		OccurredAt: time.Now().UTC(),
	}
}
