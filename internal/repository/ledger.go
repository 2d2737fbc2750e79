package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/submit"
)

// Submission is one row of the claims ledger.
type Submission struct {
	Reference   string                 `json:"reference"`
	ItemID      string                 `json:"item_id"`
	Source      string                 `json:"source"`
	Fields      entity.ExtractedFields `json:"fields"`
	SubmittedAt time.Time              `json:"submitted_at"`
}

type ClaimLedger interface {
	submit.Sink
	List(ctx context.Context, limit int) ([]Submission, error)
}

type claimLedger struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
	now     func() time.Time
}

var _ ClaimLedger = (*claimLedger)(nil)

func NewClaimLedger(db *sql.DB, dialect string, logger *slog.Logger) ClaimLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &claimLedger{db: db, dialect: dialect, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

const insertSubmission = `INSERT INTO claim_submissions
	(reference, item_id, source, claimant_name, village, claim_type, coordinates, submitted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const listSubmissions = `SELECT reference, item_id, source, claimant_name, village, claim_type, coordinates, submitted_at
	FROM claim_submissions ORDER BY submitted_at DESC, reference LIMIT ?`

// Submit records the claim. A second submission of the same item fails with submit.ErrDuplicate.
func (l *claimLedger) Submit(ctx context.Context, c submit.Claim) (submit.Receipt, error) {
	r := submit.Receipt{ItemID: c.ItemID, Reference: uuid.NewString(), SubmittedAt: l.now()}
	_, err := l.db.ExecContext(ctx, l.rebind(insertSubmission),
		r.Reference,
		c.ItemID,
		c.Source,
		c.Fields.ClaimantName,
		c.Fields.Village,
		c.Fields.ClaimType,
		c.Fields.Coordinates,
		r.SubmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return submit.Receipt{}, fmt.Errorf("%w: item %s", submit.ErrDuplicate, c.ItemID)
		}
		l.logger.Error("failed to record submission", "item_id", c.ItemID, "error", err)
		return submit.Receipt{}, fmt.Errorf("insert submission: %w", err)
	}
	l.logger.Info("submission recorded", "item_id", c.ItemID, "reference", r.Reference)
	return r, nil
}

func (l *claimLedger) List(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, l.rebind(listSubmissions), limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.Reference, &s.ItemID, &s.Source,
			&s.Fields.ClaimantName, &s.Fields.Village, &s.Fields.ClaimType, &s.Fields.Coordinates,
			&s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// rebind turns ? placeholders into $n for postgres.
func (l *claimLedger) rebind(q string) string {
	if l.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
