package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertDisputeSQL = `INSERT INTO disputes (
        tenant_id,
        dispute_id,
        order_id,
        type,
        status,
        reason,
        network_reason_code,
        amount,
        currency,
        reporting_amount,
        customer_email,
        shipping_country,
        gateway,
        evidence_due_by,
        evidence_sent_on,
        finalized_on,
        initiated_at,
        synced_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
    )
    ON CONFLICT (tenant_id, dispute_id) DO UPDATE
    SET
        order_id            = EXCLUDED.order_id,
        type                = EXCLUDED.type,
        status              = EXCLUDED.status,
        reason              = EXCLUDED.reason,
        network_reason_code = EXCLUDED.network_reason_code,
        amount              = EXCLUDED.amount,
        currency            = EXCLUDED.currency,
        reporting_amount    = EXCLUDED.reporting_amount,
        customer_email      = EXCLUDED.customer_email,
        shipping_country    = EXCLUDED.shipping_country,
        gateway             = EXCLUDED.gateway,
        evidence_due_by     = EXCLUDED.evidence_due_by,
        evidence_sent_on    = EXCLUDED.evidence_sent_on,
        finalized_on        = EXCLUDED.finalized_on,
        initiated_at        = EXCLUDED.initiated_at,
        synced_at           = EXCLUDED.synced_at;`

	listRecentDisputesSQL = `SELECT
        tenant_id,
        dispute_id,
        order_id,
        type,
        status,
        reason,
        network_reason_code,
        amount,
        currency,
        reporting_amount,
        customer_email,
        shipping_country,
        gateway,
        evidence_due_by,
        evidence_sent_on,
        finalized_on,
        initiated_at,
        synced_at
    FROM disputes
    ORDER BY initiated_at DESC
    LIMIT $1;`

	insertHealthAlertSQL = `INSERT INTO health_alerts (
        tenant_id,
        ratio,
        tier,
        channels
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, created_at;`

	lastHealthAlertSQL = `SELECT
        id,
        tenant_id,
        ratio,
        tier,
        channels,
        created_at
    FROM health_alerts
    WHERE tenant_id = $1
    ORDER BY created_at DESC
    LIMIT 1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// DisputeStore persists dispute copies keyed by tenant and upstream id.
type DisputeStore interface {
	UpsertDisputes(ctx context.Context, disputes []StoredDispute) error
	ListRecentDisputes(ctx context.Context, limit int) ([]StoredDispute, error)
	Close() error
}

// AlertStore records dispatched health alerts.
type AlertStore interface {
	InsertHealthAlert(ctx context.Context, alert HealthAlert) (HealthAlert, error)
	LastHealthAlert(ctx context.Context, tenantID string) (*HealthAlert, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store is the PostgreSQL-backed dispute and alert store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// The session lock is dropped with the connection if this fails.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertDisputes writes a batch of disputes in one round trip.
func (s *Store) UpsertDisputes(ctx context.Context, disputes []StoredDispute) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(disputes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range disputes {
		batch.Queue(upsertDisputeSQL,
			d.TenantID,
			d.DisputeID,
			nullable(d.OrderID),
			d.Type,
			d.Status,
			d.Reason,
			nullable(d.NetworkReasonCode),
			d.Amount.String(),
			d.Currency,
			d.ReportingAmount.String(),
			nullable(d.CustomerEmail),
			nullable(d.ShippingCountry),
			nullable(d.Gateway),
			d.EvidenceDueBy,
			d.EvidenceSentOn,
			d.FinalizedOn,
			d.InitiatedAt,
			d.SyncedAt,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range disputes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert dispute %s: %w", disputes[i].Key(), err)
		}
	}
	return nil
}

// ListRecentDisputes lists the most recently initiated disputes.
func (s *Store) ListRecentDisputes(ctx context.Context, limit int) ([]StoredDispute, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDisputesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent disputes: %w", queryErr)
	}
	defer rows.Close()

	disputes := make([]StoredDispute, 0, limit)
	for rows.Next() {
		d, scanErr := scanDispute(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		disputes = append(disputes, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return disputes, nil
}

// InsertHealthAlert persists an alert emission.
func (s *Store) InsertHealthAlert(ctx context.Context, alert HealthAlert) (HealthAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return HealthAlert{}, err
	}

	row := pool.QueryRow(ctx, insertHealthAlertSQL,
		alert.TenantID,
		alert.Ratio.String(),
		alert.Tier,
		alert.Channels,
	)
	if scanErr := row.Scan(&alert.ID, &alert.CreatedAt); scanErr != nil {
		return HealthAlert{}, fmt.Errorf("insert health alert: %w", scanErr)
	}
	return alert, nil
}

// LastHealthAlert returns the latest alert for a tenant, or nil if none exists.
func (s *Store) LastHealthAlert(ctx context.Context, tenantID string) (*HealthAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var rec HealthAlert
	var ratioStr string
	scanErr := pool.QueryRow(ctx, lastHealthAlertSQL, tenantID).Scan(
		&rec.ID,
		&rec.TenantID,
		&ratioStr,
		&rec.Tier,
		&rec.Channels,
		&rec.CreatedAt,
	)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return nil, nil
	}
	if scanErr != nil {
		return nil, fmt.Errorf("last health alert: %w", scanErr)
	}

	rec.Ratio, err = decimal.NewFromString(ratioStr)
	if err != nil {
		return nil, fmt.Errorf("parse ratio: %w", err)
	}
	return &rec, nil
}

func scanDispute(rows pgx.Rows) (StoredDispute, error) {
	var (
		d                       StoredDispute
		orderID, networkCode    *string
		email, country, gateway *string
		amountStr, reportingStr string
	)

	if err := rows.Scan(
		&d.TenantID,
		&d.DisputeID,
		&orderID,
		&d.Type,
		&d.Status,
		&d.Reason,
		&networkCode,
		&amountStr,
		&d.Currency,
		&reportingStr,
		&email,
		&country,
		&gateway,
		&d.EvidenceDueBy,
		&d.EvidenceSentOn,
		&d.FinalizedOn,
		&d.InitiatedAt,
		&d.SyncedAt,
	); err != nil {
		return StoredDispute{}, err
	}

	var err error
	d.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return StoredDispute{}, fmt.Errorf("parse amount: %w", err)
	}
	d.ReportingAmount, err = decimal.NewFromString(reportingStr)
	if err != nil {
		return StoredDispute{}, fmt.Errorf("parse reporting amount: %w", err)
	}

	d.OrderID = deref(orderID)
	d.NetworkReasonCode = deref(networkCode)
	d.CustomerEmail = deref(email)
	d.ShippingCountry = deref(country)
	d.Gateway = deref(gateway)
	return d, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var (
	_ DisputeStore   = (*Store)(nil)
	_ AlertStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
