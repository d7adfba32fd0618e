package decision

import (
	"context"
	"time"
)

// MirrorRepository is the derived, eventually-consistent copy of confirmed
// payment decisions kept for reporting. It is written after confirmation and
// read only by listing endpoints; single-record lookups always go to the
// ledger.
type MirrorRepository interface {
	Save(ctx context.Context, d *PaymentDecision) error
	GetRecent(ctx context.Context, limit, offset int) ([]*PaymentDecision, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*PaymentDecision, error)
}
