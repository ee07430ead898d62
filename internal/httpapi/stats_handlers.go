package httpapi

import "net/http"

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := a.analytics.Report(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleSystemOverview(w http.ResponseWriter, r *http.Request) {
	counts, err := a.analytics.SystemOverview(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
