package interfaces

import (
	"context"

	"github.com/m-mizutani/slipguard/pkg/domain/model"
)

// Notifier reports a failed run to operators. Implementations are best-effort.
type Notifier interface {
	NotifyFailure(ctx context.Context, req *model.DownloadRequest, stage model.Stage, err error) error
}
