package runtime

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mcejp/Helium/values"
	"github.com/mcejp/Helium/vm"
)

// registerDBNatives installs a flat db.open/db.query/db.exec namespace
// backed by database/sql, rather than porting the original's
// Driver/Conn/Stmt class hierarchy wholesale — Helium's runtime has no
// class concept, so a handle is just an Internal value wrapping a *sql.DB,
// passed back into the other two natives like any other opaque resource.
func registerDBNatives(machine *vm.VirtualMachine) {
	machine.RegisterExternal("db.open", nativeDBOpen)
	machine.RegisterExternal("db.query", nativeDBQuery)
	machine.RegisterExternal("db.exec", nativeDBExec)
}

// dbError is a plain error whose text flows verbatim into a catchable
// script exception, the same convention vm/methods.go's scriptError uses.
type dbError string

func (e dbError) Error() string { return string(e) }

// nativeDBOpen takes a driver name ("sqlite", "mysql", or "postgres") and a
// data source name, and returns an opaque database handle.
func nativeDBOpen(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 2 {
		return values.UndefinedValue, dbError("db.open(driver, dsn) takes exactly two arguments")
	}

	driverArg := ctx.Argument(0)
	dsnArg := ctx.Argument(1)
	if driverArg.Type() != values.String || dsnArg.Type() != values.String {
		return values.UndefinedValue, dbError("db.open(driver, dsn) expects two strings")
	}

	driverName, err := sqlDriverName(driverArg.Str())
	if err != nil {
		return values.UndefinedValue, err
	}

	db, err := sql.Open(driverName, dsnArg.Str())
	if err != nil {
		return values.UndefinedValue, dbError(fmt.Sprintf("db.open: %s", err))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return values.UndefinedValue, dbError(fmt.Sprintf("db.open: %s", err))
	}

	return values.NewInternal(db), nil
}

// sqlDriverName maps Helium's short driver names onto the database/sql
// driver names registered by this package's blank imports.
func sqlDriverName(name string) (string, error) {
	switch name {
	case "sqlite":
		return "sqlite", nil
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	default:
		return "", dbError(fmt.Sprintf("db.open: unknown driver %q", name))
	}
}

// nativeDBQuery runs a SELECT and returns a list of row objects, one
// property per column.
func nativeDBQuery(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() < 2 {
		return values.UndefinedValue, dbError("db.query(handle, query, ...) needs at least a handle and a query")
	}

	db, err := argDB(ctx.Argument(0))
	if err != nil {
		return values.UndefinedValue, err
	}

	queryArg := ctx.Argument(1)
	if queryArg.Type() != values.String {
		return values.UndefinedValue, dbError("db.query: query must be a string")
	}

	args, err := queryArgs(ctx, 2)
	if err != nil {
		return values.UndefinedValue, err
	}

	rows, err := db.Query(queryArg.Str(), args...)
	if err != nil {
		return values.UndefinedValue, dbError(fmt.Sprintf("db.query: %s", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return values.UndefinedValue, dbError(fmt.Sprintf("db.query: %s", err))
	}

	result := values.NewList(dbHost{}, 0)

	scanTargets := make([]interface{}, len(columns))
	scanValues := make([]interface{}, len(columns))
	for i := range scanTargets {
		scanTargets[i] = &scanValues[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return values.UndefinedValue, dbError(fmt.Sprintf("db.query: %s", err))
		}

		row := values.NewObject(dbHost{})
		for i, col := range columns {
			row.SetProperty(col, sqlValueToHelium(scanValues[i]), false)
		}
		result.AddItem(row)
	}
	if err := rows.Err(); err != nil {
		return values.UndefinedValue, dbError(fmt.Sprintf("db.query: %s", err))
	}

	return result, nil
}

// nativeDBExec runs an INSERT/UPDATE/DELETE/DDL statement and returns the
// number of rows affected.
func nativeDBExec(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() < 2 {
		return values.UndefinedValue, dbError("db.exec(handle, query, ...) needs at least a handle and a query")
	}

	db, err := argDB(ctx.Argument(0))
	if err != nil {
		return values.UndefinedValue, err
	}

	queryArg := ctx.Argument(1)
	if queryArg.Type() != values.String {
		return values.UndefinedValue, dbError("db.exec: query must be a string")
	}

	args, err := queryArgs(ctx, 2)
	if err != nil {
		return values.UndefinedValue, err
	}

	result, err := db.Exec(queryArg.Str(), args...)
	if err != nil {
		return values.UndefinedValue, dbError(fmt.Sprintf("db.exec: %s", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return values.UndefinedValue, dbError(fmt.Sprintf("db.exec: %s", err))
	}

	return values.NewInteger(affected), nil
}

func argDB(v values.Value) (*sql.DB, error) {
	if v.Type() != values.Internal {
		return nil, dbError("expected a database handle from db.open")
	}
	db, ok := v.Internal().(*sql.DB)
	if !ok {
		return nil, dbError("expected a database handle from db.open")
	}
	return db, nil
}

func queryArgs(ctx values.NativeCallContext, from int) ([]interface{}, error) {
	args := make([]interface{}, 0, ctx.NumArguments()-from)
	for i := from; i < ctx.NumArguments(); i++ {
		v := ctx.Argument(i)
		switch v.Type() {
		case values.Nil:
			args = append(args, nil)
		case values.Boolean:
			args = append(args, v.Bool())
		case values.Integer:
			args = append(args, v.Int())
		case values.Real:
			args = append(args, v.Float())
		case values.String:
			args = append(args, v.Str())
		default:
			return nil, dbError(fmt.Sprintf("query argument %d has unsupported type %s", i-from, v.Type()))
		}
	}
	return args, nil
}

func sqlValueToHelium(v interface{}) values.Value {
	switch t := v.(type) {
	case nil:
		return values.NewNil()
	case int64:
		return values.NewInteger(t)
	case float64:
		return values.NewReal(t)
	case bool:
		return values.NewBoolean(t)
	case []byte:
		return values.NewBytes(t)
	case string:
		return values.NewString(t)
	default:
		return values.NewString(fmt.Sprintf("%v", t))
	}
}

// dbHost satisfies values.GCHost for list/object values built by this
// package's natives. They hold no references back into any VM's heap (every
// member is a leaf scalar or string), so there is nothing for a possible
// cycle root registration to do; AddPossibleRoot is intentionally a no-op.
type dbHost struct{}

func (dbHost) AddPossibleRoot(values.Value) {}
