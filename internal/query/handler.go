package query

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/accountd/internal/respond"
)

// Handler serves the generic read-only SQL passthrough endpoint.
type Handler struct {
	db     *sqlx.DB
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, logger *zap.SugaredLogger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Request carries a parameterized SELECT statement.
type Request struct {
	Query  string `json:"query"`
	Params []any  `json:"params"`
}

type field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Execute runs the supplied statement. Only SELECT is allowed; everything
// else is rejected before touching the store.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "SQL query is required")
		return
	}
	if req.Query == "" {
		respond.Fail(w, http.StatusBadRequest, "SQL query is required")
		return
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(req.Query)), "select") {
		respond.Fail(w, http.StatusForbidden, "Only SELECT queries are allowed for security reasons")
		return
	}

	rows, err := h.db.QueryxContext(r.Context(), req.Query, req.Params...)
	if err != nil {
		h.logger.Errorw("query execution failed", "err", err)
		respond.Fail(w, http.StatusInternalServerError, "Query execution failed")
		return
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		h.logger.Errorw("query columns failed", "err", err)
		respond.Fail(w, http.StatusInternalServerError, "Query execution failed")
		return
	}
	fields := make([]field, 0, len(cols))
	for _, c := range cols {
		fields = append(fields, field{Name: c.Name(), Type: c.DatabaseTypeName()})
	}

	out := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			h.logger.Errorw("query row scan failed", "err", err)
			respond.Fail(w, http.StatusInternalServerError, "Query execution failed")
			return
		}
		// lib/pq hands back []byte for text columns; make them readable
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		h.logger.Errorw("query iteration failed", "err", err)
		respond.Fail(w, http.StatusInternalServerError, "Query execution failed")
		return
	}

	respond.JSON(w, http.StatusOK, "Query executed successfully", map[string]any{
		"rows":     out,
		"rowCount": len(out),
		"fields":   fields,
	})
}
