package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rankpilot/rankd/internal/core/domain"
)

func TestProvenanceRepositoryCreateCandidatesBatchInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProvenanceRepository(db)
	coarse := 0.8
	now := time.Now()

	mock.ExpectExec("INSERT INTO candidates").
		WithArgs(
			"set-1", "script", "s-1", &coarse, nil, `{"channelMatch":true}`, now,
			"set-1", "script", "s-2", nil, nil, nil, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = repo.CreateCandidates(context.Background(), []domain.Candidate{
		{CandidateSetID: "set-1", TargetType: domain.TargetScript, TargetID: "s-1", CoarseScore: &coarse, Reason: `{"channelMatch":true}`, CreatedAt: now},
		{CandidateSetID: "set-1", TargetType: domain.TargetScript, TargetID: "s-2", CreatedAt: now},
	})
	if err != nil {
		t.Fatalf("CreateCandidates() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProvenanceRepositoryCreateCandidatesEmptySliceNoQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProvenanceRepository(db)
	if err := repo.CreateCandidates(context.Background(), nil); err != nil {
		t.Fatalf("CreateCandidates() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProvenanceRepositoryUpsertOutcome(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProvenanceRepository(db)
	quality := 0.9
	mock.ExpectExec("ON CONFLICT \\(decision_id\\) DO UPDATE").
		WithArgs("dec-1", &quality, nil, nil, nil, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpsertOutcome(context.Background(), domain.Outcome{DecisionID: "dec-1", QualityScore: &quality})
	if err != nil {
		t.Fatalf("UpsertOutcome() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPlaceholdersShape(t *testing.T) {
	got := placeholders(2, 3)
	want := "($1,$2,$3),($4,$5,$6)"
	if got != want {
		t.Fatalf("placeholders(2,3) = %s, want %s", got, want)
	}
}
