package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/submit"
)

var claim = submit.Claim{
	ItemID: "item-1",
	Source: "form.pdf",
	Fields: entity.ExtractedFields{ClaimantName: "Ramesh Kumar", Village: "Khandwa", ClaimType: "IFR", Coordinates: "22.71,76.35"},
}

func TestLedgerSubmitInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO claim_submissions")).
		WithArgs(
			sqlmock.AnyArg(), // reference
			claim.ItemID,
			claim.Source,
			claim.Fields.ClaimantName,
			claim.Fields.Village,
			claim.Fields.ClaimType,
			claim.Fields.Coordinates,
			sqlmock.AnyArg(), // submitted_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	l := NewClaimLedger(db, DialectPostgres, nil)
	r, err := l.Submit(context.Background(), claim)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.ItemID != claim.ItemID || r.Reference == "" {
		t.Fatalf("unexpected receipt: %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestLedgerSubmitMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("INSERT INTO claim_submissions").
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: claim_submissions.item_id (2067)"))

	_, err = NewClaimLedger(db, DialectSQLite, nil).Submit(context.Background(), claim)
	if !errors.Is(err, submit.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	l := &claimLedger{dialect: DialectPostgres}
	if got := l.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	l.dialect = DialectSQLite
	if got := l.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestSQLiteLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, Config{Dialect: DialectSQLite, DSN: filepath.Join(t.TempDir(), "ledger.db")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close(nil) })

	if err := RunMigrations(ctx, d.SQL, d.Dialect); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// applying twice is a no-op
	if err := RunMigrations(ctx, d.SQL, d.Dialect); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}
	if err := d.HealthCheck(ctx, time.Second); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	l := NewClaimLedger(d.SQL, d.Dialect, nil)
	r, err := l.Submit(ctx, claim)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := l.Submit(ctx, claim); !errors.Is(err, submit.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on resubmit, got %v", err)
	}

	rows, err := l.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Reference != r.Reference || rows[0].Source != claim.Source {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if diff := cmp.Diff(claim.Fields, rows[0].Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	if _, err := Open(context.Background(), Config{Dialect: "mysql"}, nil); err == nil {
		t.Fatal("expected error")
	}
}
