package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHandler(sqlx.NewDb(db, "sqlmock"), zap.NewNop().Sugar()), mock
}

func TestExecuteMissingQuery(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, payload := range []string{`{}`, `{"query":""}`, `bad`} {
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(payload))
		w := httptest.NewRecorder()
		h.Execute(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %s", payload)
		assert.Contains(t, w.Body.String(), "SQL query is required")
	}
}

func TestExecuteRejectsWrites(t *testing.T) {
	h, mock := newTestHandler(t)

	tests := []string{
		`DELETE FROM users`,
		`update users set name = 'x'`,
		`  DROP TABLE users`,
		`INSERT INTO users (name) VALUES ('x')`,
	}
	for _, q := range tests {
		body, _ := json.Marshal(map[string]any{"query": q})
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(string(body)))
		w := httptest.NewRecorder()
		h.Execute(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, "query %s", q)
		assert.Contains(t, w.Body.String(), "Only SELECT queries are allowed")
	}
	// nothing may reach the store
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSelect(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT name FROM users WHERE id").
		WithArgs("1").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("name").OfType("VARCHAR", "")).
			AddRow("Alice"))

	req := httptest.NewRequest(http.MethodPost, "/query",
		strings.NewReader(`{"query":"SELECT name FROM users WHERE id = $1","params":["1"]}`))
	w := httptest.NewRecorder()
	h.Execute(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["rowCount"])

	rows := data["rows"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].(map[string]any)["name"])

	fields := data["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].(map[string]any)["name"])
	assert.Equal(t, "VARCHAR", fields[0].(map[string]any)["type"])
}
