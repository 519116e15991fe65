// Package registry owns the MonitorTarget catalogue: creation, metadata
// updates, pause/resume/delete, and the event log each mutation emits.
// Every write runs inside a transaction so a target's row and its start/stop
// event are committed atomically.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Poutchouli/PingMeDaddy/internal/apierr"
	"github.com/Poutchouli/PingMeDaddy/internal/geo"
)

const targetColumns = `id, ip, frequency_seconds, is_active, deleted, url, notes, created_at,
	geo_country_code, geo_country_name, geo_city, geo_latitude, geo_longitude`

// Target is a row of monitor_targets, including its optional geo annotation.
type Target struct {
	ID               int64     `json:"id"`
	IP               string    `json:"ip"`
	FrequencySeconds int       `json:"frequency_seconds"`
	IsActive         bool      `json:"is_active"`
	Deleted          bool      `json:"deleted"`
	URL              *string   `json:"url"`
	Notes            *string   `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`

	GeoCountryCode *string  `json:"geo_country_code,omitempty"`
	GeoCountryName *string  `json:"geo_country_name,omitempty"`
	GeoCity        *string  `json:"geo_city,omitempty"`
	GeoLatitude    *float64 `json:"geo_latitude,omitempty"`
	GeoLongitude   *float64 `json:"geo_longitude,omitempty"`
}

// Event is a row of event_log.
type Event struct {
	ID        int64     `json:"id"`
	TargetID  int64     `json:"target_id"`
	Type      string    `json:"event_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	EventStart  = "start"
	EventStop   = "stop"
	EventDelete = "delete"
)

// LoopController is the subset of the Scheduler the registry drives: every
// mutation that changes which targets should be running notifies it rather
// than touching scheduler state directly, keeping the two packages
// decoupled and independently testable.
type LoopController interface {
	Launch(target Target)
	Restart(target Target)
	Cancel(ctx context.Context, targetID int64) error
}

// Registry is the target CRUD and lifecycle surface.
type Registry struct {
	pool      *pgxpool.Pool
	geo       *geo.Service
	scheduler LoopController
}

// New builds a Registry. geoSvc may be nil, in which case new targets are
// never annotated. scheduler may be nil for read-only/offline use (e.g.
// CLI-side validation or tests); mutating calls that would otherwise notify
// it simply skip that step.
func New(pool *pgxpool.Pool, geoSvc *geo.Service, scheduler LoopController) *Registry {
	return &Registry{pool: pool, geo: geoSvc, scheduler: scheduler}
}

func validateIP(ip string) error {
	if net.ParseIP(ip) == nil {
		return apierr.ErrInvalidIP
	}
	return nil
}

func validateFrequency(seconds int) error {
	if seconds < 1 || seconds > 3600 {
		return apierr.ErrInvalidFrequency
	}
	return nil
}

// CreateTarget validates ip and frequency, inserts the row, annotates it
// with best-effort geo data, emits a start event, and launches its probe
// loop. IP uniqueness spans every row regardless of active/deleted state,
// per the unique constraint on monitor_targets.ip.
func (r *Registry) CreateTarget(ctx context.Context, ip string, frequencySeconds int, url, notes *string) (Target, error) {
	if err := validateIP(ip); err != nil {
		return Target{}, err
	}
	if err := validateFrequency(frequencySeconds); err != nil {
		return Target{}, err
	}

	var ann geo.Annotation
	var hasAnn bool
	if r.geo != nil {
		if a, err := r.geo.Lookup(ip); err == nil {
			ann, hasAnn = a, true
		}
	}

	var target Target
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO monitor_targets
				(ip, frequency_seconds, url, notes,
				 geo_country_code, geo_country_name, geo_city, geo_latitude, geo_longitude)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 RETURNING `+targetColumns,
			ip, frequencySeconds, url, notes,
			annField(hasAnn, ann.CountryCode), annField(hasAnn, ann.CountryName), annField(hasAnn, ann.City),
			annFloatField(hasAnn, ann.Latitude), annFloatField(hasAnn, ann.Longitude),
		)
		t, err := scanTarget(row)
		if err != nil {
			if isUniqueViolation(err) {
				return apierr.ErrDuplicateTarget
			}
			return err
		}
		target = t

		_, err = tx.Exec(ctx,
			`INSERT INTO event_log (target_id, event_type, message) VALUES ($1,$2,$3)`,
			target.ID, EventStart, fmt.Sprintf("Started tracking %s", ip),
		)
		return err
	})
	if err != nil {
		return Target{}, err
	}

	if r.scheduler != nil {
		r.scheduler.Launch(target)
	}
	return target, nil
}

// TargetUpdate is a partial update; nil fields are left unchanged.
type TargetUpdate struct {
	FrequencySeconds *int
	URL              **string
	Notes            **string
}

// UpdateTarget applies a partial update. If frequency changes on an active
// target, the scheduler restarts its loop at the new cadence.
func (r *Registry) UpdateTarget(ctx context.Context, id int64, upd TargetUpdate) (Target, error) {
	if upd.FrequencySeconds != nil {
		if err := validateFrequency(*upd.FrequencySeconds); err != nil {
			return Target{}, err
		}
	}

	var target Target
	frequencyChanged := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		frequency := existing.FrequencySeconds
		url := existing.URL
		notes := existing.Notes
		if upd.FrequencySeconds != nil {
			frequencyChanged = *upd.FrequencySeconds != existing.FrequencySeconds
			frequency = *upd.FrequencySeconds
		}
		if upd.URL != nil {
			url = *upd.URL
		}
		if upd.Notes != nil {
			notes = *upd.Notes
		}

		row := tx.QueryRow(ctx,
			`UPDATE monitor_targets SET frequency_seconds = $1, url = $2, notes = $3
			 WHERE id = $4
			 RETURNING `+targetColumns,
			frequency, url, notes, id,
		)
		t, err := scanTarget(row)
		target = t
		return err
	})
	if err != nil {
		return Target{}, err
	}

	if frequencyChanged && target.IsActive && r.scheduler != nil {
		r.scheduler.Restart(target)
	}
	return target, nil
}

// GetTarget fetches a single target by id.
func (r *Registry) GetTarget(ctx context.Context, id int64) (Target, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+targetColumns+` FROM monitor_targets WHERE id = $1`, id)
	return scanTarget(row)
}

// ListTargets returns every target, including inactive and soft-deleted
// ones, ordered by id.
func (r *Registry) ListTargets(ctx context.Context) ([]Target, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+targetColumns+` FROM monitor_targets ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("registry: list targets: %w", err)
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PauseTarget is idempotent: pausing an already-paused target succeeds
// without emitting a second stop event. It cancels the scheduler's loop
// before returning, so by the time this call completes no further probes
// for the target are in flight.
func (r *Registry) PauseTarget(ctx context.Context, id int64) error {
	var wasActive bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		wasActive = existing.IsActive
		if !wasActive {
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE monitor_targets SET is_active = FALSE WHERE id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO event_log (target_id, event_type, message) VALUES ($1,$2,$3)`,
			id, EventStop, "Stopped tracking")
		return err
	})
	if err != nil {
		return err
	}

	if wasActive && r.scheduler != nil {
		return r.scheduler.Cancel(ctx, id)
	}
	return nil
}

// ResumeTarget is idempotent on an already-active target. Resuming a
// soft-deleted target fails with NotFound.
func (r *Registry) ResumeTarget(ctx context.Context, id int64) (Target, error) {
	var target Target
	wasPaused := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing.Deleted {
			return apierr.ErrNotFound
		}
		target = existing
		if existing.IsActive {
			return nil
		}
		wasPaused = true

		row := tx.QueryRow(ctx,
			`UPDATE monitor_targets SET is_active = TRUE WHERE id = $1 RETURNING `+targetColumns,
			id,
		)
		t, err := scanTarget(row)
		target = t
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO event_log (target_id, event_type, message) VALUES ($1,$2,$3)`,
			id, EventStart, fmt.Sprintf("Resumed tracking %s", target.IP))
		return err
	})
	if err != nil {
		return Target{}, err
	}

	if wasPaused && r.scheduler != nil {
		r.scheduler.Launch(target)
	}
	return target, nil
}

// DeleteTarget soft-deletes: history is preserved, the row is marked
// permanently stopped, and any further Resume on it fails with NotFound.
func (r *Registry) DeleteTarget(ctx context.Context, id int64) error {
	var wasActive bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		wasActive = existing.IsActive

		if _, err := tx.Exec(ctx,
			`UPDATE monitor_targets SET is_active = FALSE, deleted = TRUE WHERE id = $1`, id,
		); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO event_log (target_id, event_type, message) VALUES ($1,$2,$3)`,
			id, EventDelete, "Deleted target")
		return err
	})
	if err != nil {
		return err
	}

	if wasActive && r.scheduler != nil {
		return r.scheduler.Cancel(ctx, id)
	}
	return nil
}

// ListEvents returns a target's event log, newest first.
func (r *Registry) ListEvents(ctx context.Context, targetID int64, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, target_id, event_type, message, created_at
		 FROM event_log WHERE target_id = $1 ORDER BY created_at DESC LIMIT $2`,
		targetID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("registry: list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TargetID, &e.Type, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Registry) getForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Target, error) {
	row := tx.QueryRow(ctx, `SELECT `+targetColumns+` FROM monitor_targets WHERE id = $1 FOR UPDATE`, id)
	return scanTarget(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (Target, error) {
	var t Target
	err := row.Scan(&t.ID, &t.IP, &t.FrequencySeconds, &t.IsActive, &t.Deleted, &t.URL, &t.Notes, &t.CreatedAt,
		&t.GeoCountryCode, &t.GeoCountryName, &t.GeoCity, &t.GeoLatitude, &t.GeoLongitude)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Target{}, apierr.ErrNotFound
		}
		return Target{}, err
	}
	return t, nil
}

func annField(has bool, v string) *string {
	if !has || v == "" {
		return nil
	}
	return &v
}

func annFloatField(has bool, v float64) *float64 {
	if !has {
		return nil
	}
	return &v
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
