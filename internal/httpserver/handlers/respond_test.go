package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventflow/internal/apperr"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRespondError(t *testing.T) {
	lg := zap.NewNop().Sugar()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	cases := []struct {
		err    error
		status int
		detail string
	}{
		{apperr.New(apperr.KindNotPending, "prestation 3 is not awaiting validation"), http.StatusBadRequest, "prestation 3 is not awaiting validation"},
		{apperr.New(apperr.KindNotFound, "prestation 9 not found"), http.StatusNotFound, "prestation 9 not found"},
		{apperr.New(apperr.KindConflict, "already running"), http.StatusConflict, "already running"},
		{apperr.Wrap(apperr.KindExternalFailure, errors.New("dial tcp: refused"), "store"), http.StatusInternalServerError, "internal error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		respondError(rec, lg, req, c.err)
		require.Equal(t, c.status, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, c.detail, body.Detail)
	}
}
