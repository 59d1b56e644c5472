package httpapi

import (
	"database/sql"
	"net/http"
)

func NewMux(db *sql.DB, version string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	registerVersion(mux, version)
	return mux
}
