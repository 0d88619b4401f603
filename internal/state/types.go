package state

import (
	"time"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
)

// #region version-record
// VersionRecord is one persisted controller snapshot with lineage.
type VersionRecord struct {
	VersionID string
	ParentID  string
	Iteration int
	Snapshot  controller.Snapshot
	CreatedAt time.Time
}
// #endregion version-record
