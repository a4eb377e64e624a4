package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/maintenance-api/internal/models"
)

func TestApprovalRepositoryResolveFirstWriterWins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectExec("UPDATE approval_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE approval_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	params := ResolveParams{
		ID:        "apr-1",
		Approved:  true,
		DecidedBy: "supervisor-1",
		DecidedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Resolve(context.Background(), params))

	err := repo.Resolve(context.Background(), params)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryEscalateOnlyOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	now := time.Now().UTC()
	deadline := now.Add(48 * time.Hour)

	mock.ExpectExec("UPDATE approval_records").
		WithArgs("apr-1", models.ApprovalAdmin, "supervisor unavailable", now, deadline).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE approval_records").
		WithArgs("apr-1", models.ApprovalAdmin, "supervisor unavailable", now, deadline).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Escalate(context.Background(), "apr-1", models.ApprovalAdmin, "supervisor unavailable", now, deadline))

	err := repo.Escalate(context.Background(), "apr-1", models.ApprovalAdmin, "supervisor unavailable", now, deadline)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
