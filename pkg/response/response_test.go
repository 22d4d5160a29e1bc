package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/clipstage/backend/internal/apperrors"
)

func TestErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"config", &apperrors.ConfigError{Setting: "api token"}, http.StatusServiceUnavailable},
		{"validation", &apperrors.ValidationError{Msg: "empty recording"}, http.StatusBadRequest},
		{"transport", &apperrors.TransportError{Op: "upload", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"remote", &apperrors.RemoteError{Status: 500, Message: "oops"}, http.StatusBadGateway},
		{"remote not found passes through", &apperrors.RemoteError{Status: 404, Message: "no such video"}, http.StatusNotFound},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped validation", &apperrors.TransportError{Op: "op", Err: &apperrors.ValidationError{Msg: "bad"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Error(c, tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
