package httpapi

import (
	"net/http"

	"github.com/JorgeS15/AirLab/internal/utils"
)

func registerVersion(mux *http.ServeMux, version string) {
	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"version": version})
	})
}
