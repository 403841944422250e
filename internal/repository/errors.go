// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as an overlapping booking or deleting a car
// that still has bookings.
var ErrConflict = errors.New("conflict")

// ErrStaleStatus is returned by compare-and-set status updates when the
// row no longer holds the expected status.
var ErrStaleStatus = errors.New("status changed concurrently")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// MySQL server error numbers the repositories translate.
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
