// Package activity maintains the per-user activity feed.
package activity

import (
	"context"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/infra/geoip"
)

type publisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Recorder appends feed entries enriched with a best-effort country lookup
// and announces each one over the event stream. Recording never fails the
// request that triggered it.
type Recorder struct {
	repo      domain.ActivityRepository
	resolver  geoip.CountryResolver
	publisher publisher
	logger    infra.Logger
}

func NewRecorder(repo domain.ActivityRepository, resolver geoip.CountryResolver, pub publisher, logger infra.Logger) *Recorder {
	return &Recorder{repo: repo, resolver: resolver, publisher: pub, logger: logger}
}

// Record writes one feed entry. remoteIP may be empty or unresolvable; the
// entry is stored without a country in that case.
func (r *Recorder) Record(ctx context.Context, userID, action string, entityType domain.EntityType, entityID, remoteIP string) {
	entry := &domain.ActivityEntry{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Country:    r.countryFor(remoteIP),
	}
	if err := r.repo.Record(ctx, entry); err != nil {
		r.logger.Error().Err(err).Str("action", action).Msg("activity: record failed")
		return
	}
	if r.publisher != nil {
		r.publisher.Publish(ctx, domain.ActivityLoggedEvent(userID, action, entityType, entityID))
	}
}

// ListRecent exposes the feed for the HTTP layer.
func (r *Recorder) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ActivityEntry, error) {
	return r.repo.ListRecent(ctx, userID, limit)
}

func (r *Recorder) countryFor(remoteIP string) string {
	if r.resolver == nil {
		return ""
	}
	ip := strings.TrimSpace(remoteIP)
	if ip == "" {
		return ""
	}
	country, err := r.resolver.CountryCode(ip)
	if err != nil {
		r.logger.Debug().Err(err).Str("ip", ip).Msg("activity: country lookup failed")
		return ""
	}
	return country
}
