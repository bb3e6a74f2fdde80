package probe

import (
	"context"

	"github.com/samvad-hq/samvad-pulse/pkg/sinks"
)

// AlertNotifier delivers health-transition alerts downstream. Implemented
// by sinks.Fanout.
type AlertNotifier interface {
	Notify(ctx context.Context, alert sinks.Alert) (int, error)
}
