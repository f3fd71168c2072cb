// File: internal/domain/ports/adapter/tracker.go
package adapter

import (
	"context"

	"sprint-estimator/internal/domain/model"
)

// TicketSource reads issues and sprint history from the tracker.
type TicketSource interface {
	GetIssue(ctx context.Context, key string) (*model.Ticket, error)
	// GetDevPanelLinks returns PR URLs linked to the issue via the
	// tracker's development panel. Missing dev info is not an error.
	GetDevPanelLinks(ctx context.Context, key string) ([]string, error)
	GetSprintsWithTickets(ctx context.Context, boardID, count int) ([]model.Sprint, error)
}
