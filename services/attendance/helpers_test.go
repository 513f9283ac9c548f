package attendance

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s, time.UTC)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func datePtr(t *testing.T, s string) *time.Time {
	d := mustDate(t, s)
	return &d
}

func fixedClock(t *testing.T, ts string) func() time.Time {
	t.Helper()
	now, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("parse clock %q: %v", ts, err)
	}
	return func() time.Time { return now }
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestService(t *testing.T, store Store, now string, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithNow(fixedClock(t, now)), WithLogger(quietLogger())}
	return NewService(store, append(base, opts...)...)
}

func uintPtr(v uint) *uint { return &v }
