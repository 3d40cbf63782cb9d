package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{CodeValidation, http.StatusBadRequest, false, true},
		{CodeUnauthorized, http.StatusUnauthorized, false, false},
		{CodeForbidden, http.StatusForbidden, false, false},
		{CodeNotFound, http.StatusNotFound, false, false},
		{CodeConflict, http.StatusConflict, false, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false, true},
		{CodeIdempotency, http.StatusConflict, false, true},
		{CodeRateLimit, http.StatusTooManyRequests, false, false},
		{CodeInternal, http.StatusInternalServerError, true, false},
		{CodeDependency, http.StatusServiceUnavailable, true, true},
		{CodeGateway, http.StatusBadGateway, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
			assert.NotEmpty(t, meta.PublicMessage)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestWithDetailsDoesNotMutateReceiver(t *testing.T) {
	sentinel := New(CodeStateConflict, "order not paid")
	detailed := sentinel.WithDetails(map[string]any{"payment_status": "UNPAID"})

	assert.Nil(t, sentinel.Details())
	assert.Equal(t, map[string]any{"payment_status": "UNPAID"}, detailed.Details())
	assert.Equal(t, CodeStateConflict, detailed.Code())
}

func TestSentinelMatchingIgnoresDetailsAndWrapping(t *testing.T) {
	sentinel := New(CodeNotFound, "order not found")
	returned := fmt.Errorf("settle: %w", sentinel.WithDetails(map[string]any{"order_id": "o-1"}))

	assert.True(t, stdErrors.Is(returned, sentinel))
	assert.False(t, stdErrors.Is(returned, New(CodeNotFound, "store not found")))
	assert.False(t, stdErrors.Is(returned, New(CodeValidation, "order not found")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	wrapped := Wrapf(CodeDependency, cause, "load order %s", "o-1")

	require.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "load order o-1", wrapped.Message())
	assert.Equal(t, "DEPENDENCY_ERROR: load order o-1: connection refused", wrapped.Error())
	assert.Equal(t, "NOT_FOUND: store 7 not found", Newf(CodeNotFound, "store %d not found", 7).Error())

	bare := Wrap(CodeInternal, nil, "no cause")
	assert.Nil(t, bare.Unwrap())
	assert.Equal(t, "INTERNAL_ERROR: no cause", bare.Error())
}

func TestNilReceiver(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.WithDetails("x"))
	assert.False(t, e.Is(New(CodeInternal, "")))
}

func TestAsAndIsCodeFollowChain(t *testing.T) {
	inner := New(CodeGateway, "invalid bank code")
	outer := fmt.Errorf("create subaccount: %w", inner)

	assert.Same(t, inner, As(outer))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))
	assert.True(t, IsCode(outer, CodeGateway))
	assert.False(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(nil, CodeGateway))
}
