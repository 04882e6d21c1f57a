package httpx

import (
	"errors"
	"net/http"

	"commerce-service/internal/gateway"
	"commerce-service/internal/service"

	"github.com/gin-gonic/gin"
)

// abortWithError maps service sentinel errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	var gwErr *gateway.Error

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrPaymentNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrQuantityInvalid),
		errors.Is(err, service.ErrNegativeAmount),
		errors.Is(err, service.ErrAmountInvalid),
		errors.Is(err, service.ErrCurrencyInvalid),
		errors.Is(err, service.ErrCustomerRequired),
		errors.Is(err, service.ErrUnknownStatus):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRefundExceedsQuantity),
		errors.Is(err, service.ErrRefundExceedsAmount):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrTerminalState),
		errors.Is(err, service.ErrNotRefundable),
		errors.Is(err, service.ErrRetryNotAllowed),
		errors.Is(err, service.ErrDuplicateTransaction):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &gwErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": gwErr.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
