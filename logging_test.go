package wakering

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	diff "github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func stringDiff(expected, actual string) string {
	return fmt.Sprint(diff.ToUnified(`expected`, `actual`, expected, myers.ComputeEdits(``, expected, actual)))
}

func newTestLogger(buf *bytes.Buffer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(level),
	).Logger()
}

func TestRing_logOutput(t *testing.T) {
	t.Run(`sticky`, func(t *testing.T) {
		var buf bytes.Buffer
		ring, err := New(2, WithLogger(newTestLogger(&buf, stumpy.L.LevelTrace())), WithStickySignals(true))
		if err != nil {
			t.Fatal(err)
		}
		if err := ring.Signal(0); err != nil {
			t.Fatal(err)
		}
		if err := ring.Wait(0); err != nil {
			t.Fatal(err)
		}
		if err := ring.Release(); err != nil {
			t.Fatal(err)
		}
		if err := ring.Close(); err != nil {
			t.Fatal(err)
		}
		expected := `{"lvl":"trace","slot":0,"pending":1,"msg":"signal retained"}` + "\n" +
			`{"lvl":"trace","slot":0,"msg":"consumed retained signal"}` + "\n" +
			`{"lvl":"trace","slot":0,"msg":"waiter woken"}` + "\n"
		if s := buf.String(); s != expected {
			t.Errorf("unexpected output:\n%s", stringDiff(expected, s))
		}
	})

	t.Run(`dropped`, func(t *testing.T) {
		var buf bytes.Buffer
		ring, err := New(1, WithLogger(newTestLogger(&buf, stumpy.L.LevelDebug())))
		if err != nil {
			t.Fatal(err)
		}
		if err := ring.Signal(0); err != nil {
			t.Fatal(err)
		}
		if err := ring.Close(); err != nil {
			t.Fatal(err)
		}
		expected := `{"lvl":"debug","slot":0,"msg":"signal dropped"}` + "\n"
		if s := buf.String(); s != expected {
			t.Errorf("unexpected output:\n%s", stringDiff(expected, s))
		}
	})

	t.Run(`close warning`, func(t *testing.T) {
		var buf bytes.Buffer
		ring, err := New(1, WithLogger(newTestLogger(&buf, stumpy.L.LevelTrace())))
		if err != nil {
			t.Fatal(err)
		}
		parked := parkBarrier(ring, 1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errs := make(chan error, 1)
		go func() { errs <- ring.WaitContext(ctx, 0) }()
		recvSlot(t, parked, time.Second)

		if err := ring.Close(); err != nil {
			t.Fatal(err)
		}
		cancel()
		if err := <-errs; !errors.Is(err, context.Canceled) {
			t.Fatalf("expected a canceled wait, got %v", err)
		}

		expected := `{"lvl":"trace","slot":0,"msg":"waiter parked"}` + "\n" +
			`{"lvl":"warning","waiters":1,"msg":"ring closed with parked waiters"}` + "\n" +
			`{"lvl":"trace","slot":0,"msg":"wait abandoned"}` + "\n"
		if s := buf.String(); s != expected {
			t.Errorf("unexpected output:\n%s", stringDiff(expected, s))
		}
	})
}

// With a single slot the whole pass is sequenced by the readiness barrier,
// the wakeup token, and the final join, so even the worker log lines have a
// deterministic order.
func TestBrigade_logOutput(t *testing.T) {
	var buf bytes.Buffer
	order, err := Brigade(context.Background(), &BrigadeConfig{
		Slots:  1,
		Logger: newTestLogger(&buf, stumpy.L.LevelDebug()),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 1 || order[0] != 0 {
		t.Fatalf("unexpected order: %v", order)
	}
	expected := `{"lvl":"debug","slots":1,"start":0,"msg":"brigade starting"}` + "\n" +
		`{"lvl":"debug","slot":0,"msg":"worker started"}` + "\n" +
		`{"lvl":"debug","slot":0,"msg":"signaling start slot"}` + "\n" +
		`{"lvl":"debug","slot":0,"seq":0,"msg":"worker woken"}` + "\n" +
		`{"lvl":"debug","slot":0,"msg":"worker released"}` + "\n" +
		`{"lvl":"debug","wakeups":1,"msg":"brigade complete"}` + "\n"
	if s := buf.String(); s != expected {
		t.Errorf("unexpected output:\n%s", stringDiff(expected, s))
	}
}
