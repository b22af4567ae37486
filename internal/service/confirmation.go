package service

import (
	"encoding/json"
	"strings"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/skip2/go-qrcode"
)

// displayIDLength is how many characters of the transaction id are shown to
// humans. The full id is kept for lookup.
const displayIDLength = 8

// DisplayID returns the short upper-cased form of a transaction id.
func DisplayID(transactionID string) string {
	id := []rune(strings.ToUpper(transactionID))
	if len(id) > displayIDLength {
		id = id[:displayIDLength]
	}
	return string(id)
}

// BuildConfirmation derives the user-facing confirmation for a committed
// booking. Missing event or user fields are replaced with placeholders; it
// never fails and performs no I/O.
func BuildConfirmation(b model.Booking, event model.EventSnapshot, user model.UserSnapshot) model.Confirmation {
	eventName := strings.TrimSpace(event.Name)
	if eventName == "" {
		eventName = model.UnknownEventName
	}
	userName := strings.TrimSpace(user.Name)
	if userName == "" {
		userName = model.AnonymousUser
	}

	// Marshalling a struct of strings cannot fail.
	payload, _ := json.Marshal(model.TicketPayload{
		TransactionID: b.ID,
		EventName:     eventName,
		UserName:      userName,
	})

	return model.Confirmation{
		TransactionID:  b.ID,
		DisplayID:      DisplayID(b.ID),
		EventName:      eventName,
		Quantity:       b.Quantity,
		TotalCostCents: b.TotalCostCents,
		Payload:        string(payload),
	}
}

// ConfirmationFor rebuilds a confirmation from the snapshots stored on the
// booking itself.
func ConfirmationFor(b model.Booking) model.Confirmation {
	return BuildConfirmation(b,
		model.EventSnapshot{ID: b.EventID, Name: b.EventName},
		model.UserSnapshot{ID: b.UserID, Name: b.UserName, Email: b.UserEmail, Mobile: b.UserMobile},
	)
}

// RenderQR encodes the confirmation payload as a PNG QR code of size×size
// pixels.
func RenderQR(conf model.Confirmation, size int) ([]byte, error) {
	return qrcode.Encode(conf.Payload, qrcode.Medium, size)
}
