package events

import (
	"time"

	dashboard "cragwatch/internal/dashboard/domain"
)

// ViewRefreshed is published after every successful view rebuild so
// long-lived clients can repaint without polling.
type ViewRefreshed struct {
	Mode dashboard.ViewMode
	At   time.Time
}
