package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	syntaxErr := json.Unmarshal([]byte("{"), &struct{}{})

	tcases := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{name: "nil", err: nil, retryable: false, errType: ""},
		{name: "json", err: fmt.Errorf("decode: %w", syntaxErr), retryable: false, errType: "json_decode_error"},
		{name: "no rows", err: pgx.ErrNoRows, retryable: false, errType: "not_found"},
		{name: "5xx", err: &StatusError{Service: "sendgrid", StatusCode: 502}, retryable: true, errType: "upstream_5xx"},
		{name: "429", err: &StatusError{Service: "sendgrid", StatusCode: 429}, retryable: true, errType: "rate_limited"},
		{name: "4xx", err: fmt.Errorf("wrapped: %w", &StatusError{Service: "maileroo", StatusCode: 400}), retryable: false, errType: "upstream_4xx"},
		{name: "deadline", err: context.DeadlineExceeded, retryable: true, errType: "timeout"},
		{name: "canceled", err: context.Canceled, retryable: false, errType: "context_canceled"},
		{name: "breaker", err: errors.New("circuit breaker is open"), retryable: true, errType: "circuit_open"},
		{name: "unknown", err: errors.New("boom"), retryable: false, errType: "unknown_error"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tc.err)
			assert.Equal(t, tc.retryable, retryable)
			assert.Equal(t, tc.errType, errType)
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	assert.Equal(t, "sendgrid returned status 500", (&StatusError{Service: "sendgrid", StatusCode: 500}).Error())
	assert.Equal(t, "maileroo returned status 401: bad key", (&StatusError{Service: "maileroo", StatusCode: 401, Body: "bad key"}).Error())
}
