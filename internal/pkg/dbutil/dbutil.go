package dbutil

import (
	"github.com/jmoiron/sqlx"
)

// Finalize rebinds gendry's ?-style placeholders to postgres $N placeholders.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}
