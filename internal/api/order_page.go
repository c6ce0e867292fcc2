package api

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
)

//go:embed templates/make_order.html
var templatesFS embed.FS

var orderPage = template.Must(template.ParseFS(templatesFS, "templates/make_order.html"))

type orderPageData struct {
	InitMessageID int
	Services      any
}

func (h *handlers) makeOrder(w http.ResponseWriter, r *http.Request) {
	initMessageID, err := strconv.Atoi(r.URL.Query().Get("init_message_id"))
	if err != nil || initMessageID < 0 {
		writeError(w, http.StatusBadRequest, "invalid_init_message_id", "init_message_id must be an integer")
		return
	}

	services, err := h.svc.ListServices(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := orderPage.Execute(w, orderPageData{InitMessageID: initMessageID, Services: services}); err != nil {
		internalError(w, r, err)
	}
}
