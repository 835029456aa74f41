package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
	"github.com/koustreak/sqlbridge/internal/logger"
	"github.com/koustreak/sqlbridge/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultListLimit = 100

// --- DTOs ---

type statementRequest struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

type scriptRequest struct {
	Script string `json:"script"`
}

type exportRequest struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

type column struct {
	Name string             `json:"name"`
	Type adapter.ColumnType `json:"type"`
}

type resultResponse struct {
	Columns []column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type executeResponse struct {
	RowsAffected int32 `json:"rows_affected"`
}

type txResponse struct {
	ID              string `json:"id"`
	UsePhantomQuery bool   `json:"use_phantom_query"`
}

type healthResponse struct {
	Status           string            `json:"status"`
	Adapter          string            `json:"adapter"`
	Provider         adapter.Provider  `json:"provider"`
	Schema           string            `json:"schema"`
	MaxBindValues    int               `json:"max_bind_values"`
	Lock             adapter.LockStats `json:"lock"`
	LockHeld         bool              `json:"lock_held"`
	OpenTransactions int               `json:"open_transactions"`
}

type databaseErrorBody struct {
	Kind    errs.DatabaseKind `json:"kind"`
	Code    int               `json:"code,omitempty"`
	State   string            `json:"state,omitempty"`
	Message string            `json:"message"`
	Detail  string            `json:"detail,omitempty"`
	Hint    string            `json:"hint,omitempty"`
	Column  string            `json:"column,omitempty"`
}

type errorBody struct {
	Kind      string             `json:"kind"`
	Message   string             `json:"message"`
	Database  *databaseErrorBody `json:"database,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// --- Root ---

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	info := s.db.ConnectionInfo()
	stats := s.db.LockStats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		Adapter:          s.db.AdapterName(),
		Provider:         s.db.Provider(),
		Schema:           info.SchemaName,
		MaxBindValues:    info.MaxBindValues,
		Lock:             stats,
		LockHeld:         stats.Held(),
		OpenTransactions: s.txs.len(),
	})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	s.runQuery(w, r, s.db)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	s.runExecute(w, r, s.db)
}

func (s *Server) script(w http.ResponseWriter, r *http.Request) {
	var req scriptRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Script == "" {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "script is required"))
		return
	}
	if err := s.db.ExecuteScript(r.Context(), req.Script); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Transactions ---

func (s *Server) beginTx(w http.ResponseWriter, r *http.Request) {
	tc, err := s.db.TransactionContext(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// database/sql rolls a transaction back when the context it was begun
	// with ends, and this one must outlive the request.
	tx, err := tc.StartTransaction(context.WithoutCancel(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id := s.txs.add(tx)
	logger.FromContext(r.Context()).DebugWith("transaction opened", nil, map[string]any{"tx_id": id})
	writeJSON(w, http.StatusCreated, txResponse{
		ID:              id,
		UsePhantomQuery: tx.Options().UsePhantomQuery,
	})
}

func (s *Server) txQuery(w http.ResponseWriter, r *http.Request) {
	tx, err := s.txs.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.runQuery(w, r, tx)
}

func (s *Server) txExecute(w http.ResponseWriter, r *http.Request) {
	tx, err := s.txs.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.runExecute(w, r, tx)
}

func (s *Server) commitTx(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, err := s.txs.take(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rollbackTx(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, err := s.txs.take(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := tx.Rollback(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Schema ---

func (s *Server) inspectSchema(w http.ResponseWriter, r *http.Request) {
	reader, err := schema.NewReader(s.db, s.db.ConnectionInfo().SchemaName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := reader.InspectSchema(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) inspectTable(w http.ResponseWriter, r *http.Request) {
	reader, err := schema.NewReader(s.db, s.db.ConnectionInfo().SchemaName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := reader.InspectTable(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// --- Exports ---

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	if s.exp == nil {
		writeError(w, r, errs.New(errs.ErrKindNotFound, "export sink is not configured"))
		return
	}
	var req exportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := toQuery(req.SQL, req.Args)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rs, err := s.db.QueryRaw(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.exp.Export(r.Context(), req.Name, s.db.Provider(), rs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listExports(w http.ResponseWriter, r *http.Request) {
	if s.exp == nil {
		writeError(w, r, errs.New(errs.ErrKindNotFound, "export sink is not configured"))
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, errs.New(errs.ErrKindInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	objects, err := s.exp.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": objects})
}

func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	if s.exp == nil {
		writeError(w, r, errs.New(errs.ErrKindNotFound, "export sink is not configured"))
		return
	}
	res, err := s.exp.Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Shared ---

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, on adapter.Queryable) {
	var req statementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := toQuery(req.SQL, req.Args)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rs, err := on.QueryRaw(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := resultResponse{
		Columns: make([]column, len(rs.ColumnNames)),
		Rows:    rs.Rows,
	}
	for i, name := range rs.ColumnNames {
		resp.Columns[i] = column{Name: name, Type: rs.ColumnTypes[i]}
	}
	if resp.Rows == nil {
		resp.Rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runExecute(w http.ResponseWriter, r *http.Request, on adapter.Queryable) {
	var req statementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := toQuery(req.SQL, req.Args)
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, err := on.ExecuteRaw(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, executeResponse{RowsAffected: n})
}

// fail logs fatal-tier errors before responding. Database errors are the
// caller's to handle and are not logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errs.IsFatal(err) && !errs.IsInvalidInput(err) && !errs.IsNotFound(err) {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]any{
			"path": r.URL.Path,
		})
	}
	writeError(w, r, err)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
	}
	return nil
}

// number is satisfied by the json.Number values UseNumber produces.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

func toQuery(sql string, args []any) (adapter.Query, error) {
	if sql == "" {
		return adapter.Query{}, errs.New(errs.ErrKindInvalidInput, "sql is required")
	}
	bound := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case number:
			if n, err := v.Int64(); err == nil {
				bound[i] = n
				continue
			}
			f, err := v.Float64()
			if err != nil {
				return adapter.Query{}, errs.Wrap(errs.ErrKindInvalidInput, "arg "+strconv.Itoa(i), err)
			}
			bound[i] = f
		case map[string]any, []any:
			// Objects and arrays are bound as JSON text.
			b, err := json.Marshal(v)
			if err != nil {
				return adapter.Query{}, errs.Wrap(errs.ErrKindInvalidInput, "arg "+strconv.Itoa(i), err)
			}
			bound[i] = string(b)
		default:
			bound[i] = v
		}
	}
	return adapter.Query{SQL: sql, Args: bound}, nil
}

func statusOf(err error) int {
	if _, ok := errs.AsDatabaseError(err); ok {
		return http.StatusUnprocessableEntity
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindClosed:
		return http.StatusConflict
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{
		Kind:      "unknown",
		Message:   "internal server error",
		RequestID: middleware.GetReqID(r.Context()),
	}

	if dbErr, ok := errs.AsDatabaseError(err); ok {
		body.Kind = "database"
		body.Message = dbErr.Message
		body.Database = &databaseErrorBody{
			Kind:    dbErr.Kind,
			Code:    dbErr.Code,
			State:   dbErr.State,
			Message: dbErr.Message,
			Detail:  dbErr.Detail,
			Hint:    dbErr.Hint,
			Column:  dbErr.Column,
		}
	} else {
		var e *errs.Error
		if errors.As(err, &e) {
			body.Kind = e.Kind.String()
			body.Message = e.Message
		}
	}

	writeJSON(w, statusOf(err), errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
