package registrations

import (
	"fmt"
	"time"

	"github.com/eventify-org/server/internal/domain/ids"
)

const ticketSuffixLen = 6

// NewTicketNumber builds TKT-<last 6 of event id>-<last 6 of user id>-<unix ms>.
func NewTicketNumber(eventID, userID string, at time.Time) string {
	return fmt.Sprintf("TKT-%s-%s-%d",
		ids.Suffix(eventID, ticketSuffixLen),
		ids.Suffix(userID, ticketSuffixLen),
		at.UnixMilli(),
	)
}
