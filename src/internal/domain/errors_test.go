package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"not found", NotFound("Account 9 not found"), CodeNotFound},
		{"validation", Validation("amount must be > 0"), CodeValidation},
		{"conflict", Conflict("fromAccountId and toAccountId must differ", nil), CodeConflict},
		{"optimistic", OptimisticConflict("account 1 was modified concurrently"), CodeOptimisticConflict},
		{"insufficient", InsufficientFunds("Insufficient funds"), CodeInsufficientFunds},
		{"unavailable", Unavailable("Ledger service temporarily unavailable", errors.New("dial tcp")), CodeUnavailable},
		{"wrapped", fmt.Errorf("apply transfer: %w", InsufficientFunds("Insufficient funds")), CodeInsufficientFunds},
		{"plain", errors.New("boom"), CodeServerError},
		{"internal", Internal("decode cached response", errors.New("eof")), CodeServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, CodeOf(tc.err))
		})
	}
}

func TestCodeOfUsesOutermostKind(t *testing.T) {
	err := Conflict("retries exhausted", OptimisticConflict("version mismatch"))

	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.True(t, errors.Is(err, ErrOptimisticConflict))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusConflict, HTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInsufficientFunds))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeServerError))
}

func TestFromCodeRoundTrip(t *testing.T) {
	for _, code := range []ErrorCode{CodeNotFound, CodeValidation, CodeConflict, CodeOptimisticConflict, CodeInsufficientFunds, CodeUnavailable} {
		err := FromCode(code, "message")
		assert.Equal(t, code, CodeOf(err))
		assert.Equal(t, "message", err.Error())
	}

	assert.Nil(t, FromCode(CodeServerError, "boom"))
	assert.Nil(t, FromCode("SOMETHING_ELSE", "boom"))
}

func TestIsBusiness(t *testing.T) {
	assert.True(t, IsBusiness(InsufficientFunds("Insufficient funds")))
	assert.True(t, IsBusiness(NotFound("missing")))
	assert.True(t, IsBusiness(Validation("bad")))
	assert.True(t, IsBusiness(Conflict("dup", nil)))
	assert.True(t, IsBusiness(OptimisticConflict("stale")))
	assert.False(t, IsBusiness(Unavailable("down", nil)))
	assert.False(t, IsBusiness(errors.New("connection refused")))
}
