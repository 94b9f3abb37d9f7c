package crash

import (
	"context"

	"github.com/modforge/assembly/pkg/models"
)

// Recorder appends the completed CrashSession record (§4.L step 7). The
// concrete implementation is pkg/store.Store.RecordCrashSession; this
// interface keeps the pipeline testable without a database.
type Recorder interface {
	RecordCrashSession(ctx context.Context, session models.CrashSession) error
}
