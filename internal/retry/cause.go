// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package retry

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Cause is the closed set of reasons a store operation may be retried.
type Cause int

const (
	// CauseNone marks a non-transient failure. It is never retried.
	CauseNone Cause = iota
	CauseTimeout
	CauseConnRefused
	CauseDNS
	CauseConnTerminated
	CauseServerSelection
	CausePoolExhausted
	CauseBusy
	// CauseUnknownTransient covers network errors that carry no
	// structured code the classifier understands.
	CauseUnknownTransient
)

var causeNames = map[Cause]string{
	CauseNone:             "none",
	CauseTimeout:          "timeout",
	CauseConnRefused:      "connection_refused",
	CauseDNS:              "dns",
	CauseConnTerminated:   "connection_terminated",
	CauseServerSelection:  "server_selection",
	CausePoolExhausted:    "pool_exhausted",
	CauseBusy:             "busy",
	CauseUnknownTransient: "unknown_transient",
}

func (c Cause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}
	return "invalid"
}

// Transient reports whether a failure with this cause may succeed on retry.
func (c Cause) Transient() bool {
	return c != CauseNone
}

// PoisonsPool reports whether the cause suggests pooled connections are
// dead and the pool should be recreated before the next attempt.
func (c Cause) PoisonsPool() bool {
	switch c {
	case CauseConnRefused, CauseDNS, CauseConnTerminated, CauseServerSelection, CauseUnknownTransient:
		return true
	default:
		return false
	}
}

// Classify maps err to a Cause using the structured error types of the
// drivers in use. Constraint violations, sql.ErrNoRows and anything
// unrecognised map to CauseNone.
func Classify(err error) Cause {
	if err == nil {
		return CauseNone
	}
	if errors.Is(err, context.Canceled) {
		return CauseNone
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}

	if c, ok := classifyPostgres(err); ok {
		return c
	}
	if c, ok := classifySQLite(err); ok {
		return c
	}
	if c, ok := classifyMongo(err); ok {
		return c
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CauseDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return CauseConnRefused
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return CauseConnTerminated
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CauseTimeout
		}
		return CauseUnknownTransient
	}

	return CauseNone
}

func classifyPostgres(err error) (Cause, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection_exception class
			return CauseConnTerminated, true
		case pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03":
			return CauseConnTerminated, true
		case pgErr.Code == "53300": // too_many_connections
			return CausePoolExhausted, true
		case pgErr.Code == "57014": // query_canceled, raised by statement_timeout
			return CauseTimeout, true
		default:
			return CauseNone, true
		}
	}
	if pgconn.Timeout(err) {
		return CauseTimeout, true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		if inner := connErr.Unwrap(); inner != nil {
			if c := Classify(inner); c != CauseNone {
				return c, true
			}
		}
		return CauseConnRefused, true
	}
	return CauseNone, false
}

func classifySQLite(err error) (Cause, bool) {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return CauseNone, false
	}
	switch sqErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return CauseBusy, true
	default:
		return CauseNone, true
	}
}

func classifyMongo(err error) (Cause, bool) {
	var sse topology.ServerSelectionError
	if errors.As(err, &sse) {
		return CauseServerSelection, true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return CauseConnTerminated, true
	}
	if mongo.IsTimeout(err) {
		return CauseTimeout, true
	}
	if mongo.IsNetworkError(err) {
		return CauseConnTerminated, true
	}
	return CauseNone, false
}
