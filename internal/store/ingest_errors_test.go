package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"cadence/internal/models"
)

func TestRecordIngestErrorKeepsJSONPayload(t *testing.T) {
	st, mock := newMockStore(t)

	payload := json.RawMessage(`{"from":"a@x.com"}`)
	mock.ExpectExec(`INSERT INTO ingest_errors`).
		WithArgs("u1", "mail", "normalize", []byte(`{"from":"a@x.com"}`), "missing subject").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := st.RecordIngestError(context.Background(), &models.IngestError{
		UserID:   "u1",
		Provider: "mail",
		Stage:    "normalize",
		Payload:  payload,
		Error:    "missing subject",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordIngestErrorWrapsNonJSONPayload(t *testing.T) {
	// Gateways answer errors with HTML or plain text; the side log must
	// still accept the body.
	st, mock := newMockStore(t)

	body := "<html>502 Bad Gateway</html>"
	wrapped, err := json.Marshal(body)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO ingest_errors`).
		WithArgs("u1", "mail", "sync", wrapped, "gateway returned 502").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = st.RecordIngestError(context.Background(), &models.IngestError{
		UserID:   "u1",
		Provider: "mail",
		Stage:    "sync",
		Payload:  json.RawMessage(body),
		Error:    "gateway returned 502",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordIngestErrorEmptyPayload(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO ingest_errors`).
		WithArgs("u1", "", "timeline", []byte(nil), "timeline payload has no contact_id").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := st.RecordIngestError(context.Background(), &models.IngestError{
		UserID: "u1",
		Stage:  "timeline",
		Error:  "timeline payload has no contact_id",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
