package errors

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// DriverError is the database-specific part of a failure, normalized across
// pgx, lib/pq and sqlite3.
type DriverError struct {
	Driver     string `json:"driver"`
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string       `json:"top_message"`
	Code       Code         `json:"code,omitempty"`
	Retryable  bool         `json:"retryable,omitempty"`
	Chain      []string     `json:"chain,omitempty"`
	DB         *DriverError `json:"db,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if de, ok := driverError(err); ok {
		d.DB = &de
	}
	return d
}

// Fields renders the dump as logger fields. DB fields are prefixed "db_".
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
		"retryable":   d.Retryable,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if d.DB == nil {
		return fields
	}
	fields["db_driver"] = d.DB.Driver
	for key, v := range map[string]string{
		"db_code":       d.DB.Code,
		"db_constraint": d.DB.Constraint,
		"db_table":      d.DB.Table,
		"db_column":     d.DB.Column,
		"db_detail":     d.DB.Detail,
		"db_message":    d.DB.Message,
	} {
		if v != "" {
			fields[key] = v
		}
	}
	return fields
}

func driverError(err error) (DriverError, bool) {
	var (
		pgxErr  *pgconn.PgError
		pqErr   *pq.Error
		liteErr sqlite3.Error
	)
	switch {
	case errors.As(err, &pgxErr):
		return DriverError{
			Driver:     "pgx",
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	case errors.As(err, &pqErr):
		return DriverError{
			Driver:     "pq",
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	case errors.As(err, &liteErr):
		return DriverError{
			Driver:  "sqlite",
			Code:    strconv.Itoa(int(liteErr.ExtendedCode)),
			Message: liteErr.Error(),
		}, true
	}
	return DriverError{}, false
}
