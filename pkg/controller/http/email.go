package http

import (
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/service/mail"
	"github.com/secmon-lab/askemail/pkg/utils/errutil"
	"github.com/secmon-lab/askemail/pkg/utils/safe"
)

// rejectMessage is the generic sender-visible text returned on any pipeline
// failure. Internal detail stays in the logs.
const rejectMessage = "Internal Error, this error will get send back to the AI for it to fix itself, try again soon!"

// handleInboundEmail accepts one raw RFC 5322 message per request and runs
// the full pipeline on it. Exactly one of 200 (replied) or an error status
// (rejected) is returned per message.
func (s *Server) handleInboundEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer safe.Close(ctx, r.Body)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest, "failed to read request body")
		return
	}

	email, err := mail.Parse(raw)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest, "malformed email message")
		return
	}

	if err := s.uc.HandleEmail(ctx, email); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError, rejectMessage)
		return
	}

	w.WriteHeader(http.StatusOK)
	safe.Write(ctx, w, []byte("OK"))
}
