// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package resiliency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

func TestRetryGetSucceedsAfterTransientErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	b := ExponentialBackoff(time.Millisecond, 5*time.Millisecond, 5*time.Second)
	v, err := RetryGet(context.Background(), b, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("not yet")
		}
		return "ready", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ready", v)
	require.Equal(t, 3, attempts)
}

func TestRetryGetStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	attempts := 0
	fatal := errors.New("fatal")
	b := ExponentialBackoff(time.Millisecond, 5*time.Millisecond, 5*time.Second)
	_, err := RetryGet(context.Background(), b, func() (int, error) {
		attempts++
		return 0, Permanent(fatal)
	})

	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, attempts)
}

func TestRetryGetReportsLastAttemptErrorOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	attemptErr := errors.New("still failing")
	b := ExponentialBackoff(5*time.Millisecond, 5*time.Millisecond, time.Minute)
	_, err := RetryGet(ctx, b, func() (int, error) {
		return 0, attemptErr
	})

	require.ErrorIs(t, err, attemptErr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMakePanicError(t *testing.T) {
	t.Parallel()

	require.NoError(t, MakePanicError(nil, logr.Discard()))

	err := MakePanicError("boom", logr.Discard())
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
