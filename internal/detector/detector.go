// Package detector holds the periodic event detectors. Each detector scans
// one domain collaborator for a notifiable condition, drops candidates that
// were already notified within the dedup window and hands the rest to the
// dispatcher.
package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/metrics"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Detector scans for one notifiable condition
type Detector interface {
	Name() string
	Config() Config
	Run(ctx context.Context) (RunStats, error)
}

// RunStats counts what one tick did
type RunStats struct {
	Scanned      int `json:"scanned"`
	Emitted      int `json:"emitted"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	Transitioned int `json:"transitioned"`
}

// Notifier is the dispatcher as seen by detectors
type Notifier interface {
	Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResult, error)
}

// NotificationLog answers dedup lookups
type NotificationLog interface {
	ExistsSince(ctx context.Context, q domain.DedupQuery) (bool, error)
}

// AdminDirectory lists the active admin recipients
type AdminDirectory interface {
	FindAdmins(ctx context.Context) ([]*domain.User, error)
}

// Deps are the collaborators every detector shares
type Deps struct {
	Notifier Notifier
	Log      NotificationLog
	Admins   AdminDirectory
	Clock    clock.Clock
	Logger   *logger.Logger
}

// Candidate is one notification a detector wants to emit
type Candidate struct {
	UserID   primitive.ObjectID
	Type     domain.NotificationType
	Title    string
	Message  string
	Payload  domain.Payload
	Match    map[string]any
	Priority domain.Priority
	Force    bool
}

// DedupKey renders the candidate's identity as type:field=value,...
func (c Candidate) DedupKey() string {
	keys := make([]string, 0, len(c.Match))
	for k := range c.Match {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, matchValue(c.Match[k])))
	}
	return fmt.Sprintf("%s:%s", c.Type, strings.Join(parts, ","))
}

func matchValue(v any) string {
	if id, ok := v.(primitive.ObjectID); ok {
		return id.Hex()
	}
	return fmt.Sprint(v)
}

// base carries what every concrete detector needs: its name, config and
// the shared collaborators
type base struct {
	name string
	cfg  Config
	deps Deps
	log  *logger.Logger
}

func newBase(name string, cfg Config, deps Deps) base {
	return base{
		name: name,
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.Named(name),
	}
}

func (b *base) Name() string { return b.name }

func (b *base) Config() Config { return b.cfg }

func (b *base) now() time.Time { return b.deps.Clock.Now() }

// since is the lower bound of the dedup window; zero means ever
func (b *base) since() time.Time {
	if b.cfg.DedupWindow <= 0 {
		return time.Time{}
	}
	return b.now().Add(-b.cfg.DedupWindow)
}

// track wraps one tick with logging and metrics
func (b *base) track(ctx context.Context, tick func(ctx context.Context, stats *RunStats) error) (RunStats, error) {
	start := time.Now()
	var stats RunStats

	err := tick(ctx, &stats)

	status := "success"
	if err != nil {
		status = "failed"
		b.log.Error("Detector tick failed", "error", err)
	}
	metrics.DetectorRuns.WithLabelValues(b.name, status).Inc()
	metrics.DetectorDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())

	b.log.Info("Detector tick finished",
		"scanned", stats.Scanned,
		"emitted", stats.Emitted,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"transitioned", stats.Transitioned,
		"duration", time.Since(start),
	)
	return stats, err
}

// scan runs one collaborator query under the configured query timeout
func scan[T any](ctx context.Context, b *base, find func(ctx context.Context) ([]T, error)) ([]T, error) {
	if b.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.QueryTimeout)
		defer cancel()
	}

	items, err := find(ctx)
	if err != nil {
		return nil, errors.NewDetectorQueryError(b.name, err)
	}
	return items, nil
}

// adminIDs lists admin recipients for detectors that notify all admins
func (b *base) adminIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	admins, err := scan(ctx, b, b.deps.Admins.FindAdmins)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// guard isolates one candidate: a panic is counted as a failure and the
// tick carries on with the next candidate
func (b *base) guard(stats *RunStats, subject string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stats.Failed++
			metrics.DetectorCandidates.WithLabelValues(b.name, "failed").Inc()
			b.log.Error("Detector candidate panicked", "subject", subject, "panic", r)
		}
	}()
	fn()
}

// emit dedups c against the notification log and sends it when no prior
// notification of the same event exists in the window
func (b *base) emit(ctx context.Context, stats *RunStats, c Candidate) {
	key := c.DedupKey()
	b.guard(stats, key, func() {
		dup, err := b.deps.Log.ExistsSince(ctx, domain.DedupQuery{
			UserID: c.UserID,
			Type:   c.Type,
			Match:  c.Match,
			Since:  b.since(),
		})
		if err != nil {
			stats.Failed++
			metrics.DetectorCandidates.WithLabelValues(b.name, "failed").Inc()
			b.log.Warn("Dedup check failed, skipping candidate", "key", key, "error", errors.NewDedupCheckError(key, err))
			return
		}
		if dup {
			stats.Skipped++
			metrics.DetectorCandidates.WithLabelValues(b.name, "skipped").Inc()
			b.log.Debug("Already notified", "key", key, "user_id", c.UserID.Hex())
			return
		}

		_, err = b.deps.Notifier.Send(ctx, &domain.SendRequest{
			UserID:        c.UserID,
			Type:          c.Type,
			Title:         c.Title,
			Message:       c.Message,
			Data:          c.Payload,
			Priority:      c.Priority,
			ForceChannels: c.Force,
		})
		if err != nil {
			stats.Failed++
			metrics.DetectorCandidates.WithLabelValues(b.name, "failed").Inc()
			b.log.Warn("Failed to emit notification", "key", key, "user_id", c.UserID.Hex(), "error", err)
			return
		}

		stats.Emitted++
		metrics.DetectorCandidates.WithLabelValues(b.name, "emitted").Inc()
	})
}

// emitTo sends the same candidate to each recipient, each deduped on its own
func (b *base) emitTo(ctx context.Context, stats *RunStats, recipients []primitive.ObjectID, c Candidate) {
	for _, id := range recipients {
		c.UserID = id
		b.emit(ctx, stats, c)
	}
}

func (b *base) transitioned(stats *RunStats, to string) {
	stats.Transitioned++
	metrics.DetectorTransitions.WithLabelValues(b.name, to).Inc()
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func humanDate(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006")
}
