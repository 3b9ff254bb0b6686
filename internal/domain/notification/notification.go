// Package notification defines the contracts for delivering reminders to a
// user's frame client. The delivery address is an opaque token+endpoint pair
// minted by the frame host when the user grants notification permission.
package notification

import "context"

// Address is an opaque delivery address. Token identifies the recipient,
// URL is the host endpoint the payload is posted to. Both are required.
type Address struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// Valid reports whether the address is complete enough to send to.
func (a Address) Valid() bool {
	return a.Token != "" && a.URL != ""
}

// Sender delivers a notification to a single address.
type Sender interface {
	// Send posts the notification. Any non-nil error means the
	// notification was not delivered.
	Send(ctx context.Context, addr Address, title, body string) error
}

// Resolver looks up a delivery address for a user when none is stored with
// the reminder preference. Backed by the address book the frame host
// maintains as users add the app.
type Resolver interface {
	// Resolve returns the address for fid, or an error when the host has
	// no address on file.
	Resolve(ctx context.Context, fid string) (Address, error)
}
