package interactions

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/models"
)

var columns = []string{"id", "user_id", "item_id", "item_type", "interaction_type", "occurred_at", "metadata"}

func newMockLog(t *testing.T) (*PostgresLog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresLog(db), mock
}

func TestPostgresLogAppend(t *testing.T) {
	log, mock := newMockLog(t)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO interactions").
		WithArgs("e1", "u1", "i1", "product", "like", ts, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := log.Append(context.Background(), models.Interaction{
		ID: "e1", UserID: "u1", ItemID: "i1",
		ItemType: models.DocumentTypeProduct, InteractionType: models.InteractionLike,
		Timestamp: ts, Metadata: map[string]interface{}{"source": "web"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogAppendFailureIsRetryable(t *testing.T) {
	log, mock := newMockLog(t)
	mock.ExpectExec("INSERT INTO interactions").WillReturnError(stderrors.New("connection refused"))

	err := log.Append(context.Background(), models.Interaction{ID: "e1", UserID: "u1", ItemID: "i1"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInteractionLogFailure, errors.CodeOf(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestPostgresLogQueryByUser(t *testing.T) {
	log, mock := newMockLog(t)
	newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM interactions WHERE user_id = \\$1 ORDER BY occurred_at DESC").
		WithArgs("u1", 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("e2", "u1", "i2", "product", "purchase", newer, []byte(`{"source":"app"}`)).
			AddRow("e1", "u1", "i1", "lodging", "view", older, nil))

	evs, err := log.QueryByUser(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "e2", evs[0].ID)
	assert.Equal(t, models.InteractionPurchase, evs[0].InteractionType)
	assert.Equal(t, "app", evs[0].Metadata["source"])
	assert.Equal(t, models.DocumentTypeLodging, evs[1].ItemType)
	assert.Nil(t, evs[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogQueryByItems(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectQuery("WHERE item_id = ANY\\(\\$1\\) AND user_id <> \\$2").
		WithArgs(sqlmock.AnyArg(), "u1", 500).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("e9", "u2", "i1", "product", "view", time.Now(), nil))

	evs, err := log.QueryByItems(context.Background(), []string{"i1", "i2"}, "u1", 500)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "u2", evs[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogQueryByNoItemsSkipsDatabase(t *testing.T) {
	log, mock := newMockLog(t)
	evs, err := log.QueryByItems(context.Background(), nil, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, evs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogEnsureSchema(t *testing.T) {
	log, mock := newMockLog(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS interactions").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, log.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
