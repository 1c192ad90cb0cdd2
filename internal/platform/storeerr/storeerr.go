// Package storeerr clasifica fallas de almacenamiento recuperables.
package storeerr

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTransient marca fallas de almacenamiento que vale la pena reintentar.
var ErrTransient = errors.New("transient store error")

// Wrap devuelve err envuelto con ErrTransient si es recuperable; si no, err tal cual.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) && !errors.Is(err, ErrTransient) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08 = connection exception, 40001/40P01 = serialización/deadlock, 57P0x = shutdown
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		case strings.HasPrefix(pgErr.Code, "57P0"):
			return true
		}
		return false
	}

	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
