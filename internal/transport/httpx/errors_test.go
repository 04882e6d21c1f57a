package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"commerce-service/internal/gateway"
	"commerce-service/internal/service"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	abortWithError(c, err)
	return w.Code
}

func TestAbortWithError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrOrderNotFound, http.StatusNotFound},
		{service.ErrPaymentNotFound, http.StatusNotFound},
		{service.ErrEmptyItems, http.StatusBadRequest},
		{service.ErrCurrencyInvalid, http.StatusBadRequest},
		{service.ErrRefundExceedsQuantity, http.StatusUnprocessableEntity},
		{service.ErrRefundExceedsAmount, http.StatusUnprocessableEntity},
		{service.ErrNotPending, http.StatusConflict},
		{service.ErrTerminalState, http.StatusConflict},
		{service.ErrDuplicateTransaction, http.StatusConflict},
		{&gateway.Error{Code: "declined", Message: "no"}, http.StatusBadGateway},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("%v: expected %d got %d", tc.err, tc.want, got)
		}
	}
}
