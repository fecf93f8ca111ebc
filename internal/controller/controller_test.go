package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/bandscore/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&service.NotFoundError{Resource: "attempt", ID: 3}, http.StatusNotFound},
		{fmt.Errorf("%w: attempt 3", service.ErrAttemptClosed), http.StatusConflict},
		{service.ErrAttemptNotCompleted, http.StatusConflict},
		{service.ErrAlreadyGraded, http.StatusConflict},
		{service.ErrQuestionNotInAttempt, http.StatusUnprocessableEntity},
		{service.ErrInvalidSkill, http.StatusBadRequest},
		{service.ErrInvalidScore, http.StatusBadRequest},
		{service.ErrAssistantUnavailable, http.StatusServiceUnavailable},
		{&service.DataIntegrityError{AttemptID: 1, QuestionID: 2, Reason: "question missing from catalog"}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for raw, wantOK := range map[string]bool{"12": true, "0": false, "-1": false, "abc": false} {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Params = gin.Params{{Key: "attempt_id", Value: raw}}

		id, ok := ParamID(ctx, "attempt_id")
		assert.Equal(t, wantOK, ok, raw)
		if wantOK {
			assert.Equal(t, uint(12), id)
		} else {
			assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		}
	}
}
