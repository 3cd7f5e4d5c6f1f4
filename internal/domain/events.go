package domain

import "time"

const EventCartReplaced = "cart.replaced"

// CartReplacedEvent is published after a cart replacement commits.
type CartReplacedEvent struct {
	UserID        int64              `json:"user_id"`
	SnapshotTag   string             `json:"snapshot_tag"`
	ArchivedLines int64              `json:"archived_lines"`
	Items         []CartReplacedItem `json:"items"`
	ReplacedAt    time.Time          `json:"replaced_at"`
}

type CartReplacedItem struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}
