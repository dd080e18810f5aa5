package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// events returns the most recent event log entries, newest first.
func events(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := ctx.requireRootAdmin(); err != nil {
		return err
	}

	limit, err := intValue(req, "limit", 100)
	if err != nil {
		return err
	}
	if limit <= 0 || limit > 10000 {
		return badRequest("limit must be between 1 and 10000")
	}

	entries, err := ctx.Events.Recent(req.Context(), limit)
	if err != nil {
		return err
	}

	var result = []eventJSON{}
	for _, e := range entries {
		result = append(result, newEventJSON(e))
	}
	return respond(w, result)
}
