package resultindex

import (
	"context"
	"errors"
	"testing"
)

type codedError struct{ code int }

func (e codedError) Error() string { return "sqlite error" }
func (e codedError) Code() int     { return e.code }

func TestIsSQLiteBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{codedError{code: 5}, true},
		{codedError{code: 261}, true}, // SQLITE_BUSY_RECOVERY
		{codedError{code: 19}, false},
		{errors.New("no such table"), false},
	}
	for _, tc := range cases {
		if got := isSQLiteBusy(tc.err); got != tc.want {
			t.Errorf("isSQLiteBusy(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return codedError{code: 5}
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("retryOnBusy = %v after %d calls", err, calls)
	}

	calls = 0
	permanent := errors.New("constraint failed")
	if err := retryOnBusy(context.Background(), func() error { calls++; return permanent }); !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("non-busy errors must not be retried: %v after %d calls", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := retryOnBusy(ctx, func() error { return codedError{code: 5} }); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
