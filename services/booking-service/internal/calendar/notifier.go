// Package calendar tells calendar views which staff days changed. Slot lists are never
// stored here; availability is recomputed from appointments on every request.
package calendar

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "salonbook.calendar.changed"

// Change is the notice published on the channel. An empty StaffID means every
// professional of the business, as after an opening-hours change.
type Change struct {
	BusinessID string   `json:"business_id"`
	StaffID    string   `json:"staff_id,omitempty"`
	Dates      []string `json:"dates,omitempty"`
	Version    int64    `json:"version"`
}

type Notifier struct {
	rdb     redis.Cmdable
	channel string
}

func NewNotifier(rdb redis.Cmdable, channel string) *Notifier {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &Notifier{rdb: rdb, channel: channel}
}

// VersionKey holds a per-tenant counter bumped on every change, so views can tell
// whether what they render predates the last notice.
func VersionKey(businessID string) string {
	return "calendar:version:" + businessID
}

// Invalidate announces that the given days of one professional changed.
func (n *Notifier) Invalidate(ctx context.Context, businessID, staffID string, dates ...string) error {
	if len(dates) == 0 {
		return nil
	}
	_, err := n.publish(ctx, Change{BusinessID: businessID, StaffID: staffID, Dates: dates})
	return err
}

// InvalidateBusiness announces that every day of the tenant changed and returns the new version.
func (n *Notifier) InvalidateBusiness(ctx context.Context, businessID string) (int64, error) {
	return n.publish(ctx, Change{BusinessID: businessID})
}

func (n *Notifier) publish(ctx context.Context, change Change) (int64, error) {
	version, err := n.rdb.Incr(ctx, VersionKey(change.BusinessID)).Result()
	if err != nil {
		return 0, err
	}
	change.Version = version
	payload, err := json.Marshal(change)
	if err != nil {
		return 0, err
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return 0, err
	}
	return version, nil
}
