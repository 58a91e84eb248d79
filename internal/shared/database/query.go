package database

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Args collects positional query arguments and renders the placeholder
// syntax of the executor's driver. Each Add call yields a fresh placeholder,
// so a value used twice in a statement must be added twice.
type Args struct {
	driver Driver
	values []interface{}
}

func NewArgs(driver Driver) *Args {
	return &Args{driver: driver}
}

// Add appends a value and returns its placeholder
func (a *Args) Add(value interface{}) string {
	a.values = append(a.values, value)
	if a.driver == DriverPostgres {
		return "$" + strconv.Itoa(len(a.values))
	}
	return "?"
}

// List appends every value and returns the comma-separated placeholders
func (a *Args) List(values ...interface{}) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = a.Add(v)
	}
	return strings.Join(placeholders, ", ")
}

func (a *Args) Values() []interface{} {
	return a.values
}

func (a *Args) Len() int {
	return len(a.values)
}

// IsUniqueViolation reports whether err is a unique constraint failure from either driver
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
	}

	return false
}

// Chunk splits n items into consecutive [start, end) windows of at most size items
func Chunk(n, size int) [][2]int {
	if size < 1 {
		size = n
	}
	var windows [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		windows = append(windows, [2]int{start, end})
	}
	return windows
}
