package driver

import (
	sqldriver "database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// transientCauses are message fragments of errors after which a reconnect
// may succeed.
var transientCauses = []string{
	"gone away",
	"lost connection",
	"closed the connection unexpectedly",
	"closed unexpectedly",
	"deadlock avoided",
	"deadlock found",
	"decryption failed or bad record mac",
	"is dead or not enabled",
	"no connection to the server",
	"query_wait_timeout",
	"reset by peer",
	"broken pipe",
	"terminate due to client_idle_limit",
	"while sending",
	"writing data to the connection",
	"invalid connection",
	"bad connection",
}

// MySQL server error numbers worth a retry.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlServerGone      = 2006
	mysqlServerLost      = 2013
)

// IsTransient reports whether err is a connection level failure that may
// disappear after reconnecting. Everything else is a permanent error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, sqldriver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlLockWaitTimeout, mysqlDeadlock, mysqlServerGone, mysqlServerLost:
			return true
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 08: connection exception, 40001: serialization failure, 40P01: deadlock
		if pqErr.Code.Class() == "08" || pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return true
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, cause := range transientCauses {
		if strings.Contains(msg, cause) {
			return true
		}
	}
	return false
}
