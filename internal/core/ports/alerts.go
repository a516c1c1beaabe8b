package ports

import "context"

type Topic string

const (
	ReserveShortfall Topic = "Reserve Shortfall"
)

// ReserveShortfallAlert reports a component whose reserve held by the basket
// is lower than the withdrawal taxes accrued for it.
type ReserveShortfallAlert struct {
	Contract string
	Asset    string
	Balance  string
	Taxes    string
	Supply   string
}

type Alerts interface {
	Publish(ctx context.Context, topic Topic, message any) error
}
