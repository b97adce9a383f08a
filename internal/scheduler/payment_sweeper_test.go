package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeExpirer struct {
	n     int64
	err   error
	calls int
}

func (f *fakeExpirer) ExpirePending(context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

type fakeCompleter struct{ calls int }

func (f *fakeCompleter) CompleteFinishedStays(context.Context) (int64, error) {
	f.calls++
	return 1, nil
}

func TestRunOnceRunsBothJobs(t *testing.T) {
	log, hook := test.NewNullLogger()
	exp := &fakeExpirer{n: 3}
	comp := &fakeCompleter{}

	(&PaymentSweeper{Payments: exp, Completer: comp, Log: log}).RunOnce(context.Background())

	if exp.calls != 1 || comp.calls != 1 {
		t.Fatalf("calls: expire=%d complete=%d", exp.calls, comp.calls)
	}
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("want 2 log entries, got %d", len(hook.AllEntries()))
	}
}

func TestRunOnceLogsErrorAndContinues(t *testing.T) {
	log, hook := test.NewNullLogger()
	comp := &fakeCompleter{}

	(&PaymentSweeper{Payments: &fakeExpirer{err: errors.New("db down")}, Completer: comp, Log: log}).RunOnce(context.Background())

	if comp.calls != 1 {
		t.Fatal("completer skipped after expiry error")
	}
	if e := hook.AllEntries()[0]; e.Level != logrus.ErrorLevel {
		t.Fatalf("first entry level = %s", e.Level)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	log, _ := test.NewNullLogger()
	exp := &fakeExpirer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		(&PaymentSweeper{Payments: exp, Log: log}).Start(ctx)
		close(done)
	}()
	cancel()
	<-done
	if exp.calls < 1 {
		t.Fatal("no sweep ran on start")
	}
}
