package main

import (
	"context"
	"time"

	"github.com/kylesnowschwartz/tail-runs/auth"
	"github.com/kylesnowschwartz/tail-runs/realtime"
	"github.com/kylesnowschwartz/tail-runs/runs"
)

// demoUser is signed in when running with --demo.
var demoUser = auth.User{UID: "demo-runner", Email: "demo@tail-runs.local"}

// sampleRuns returns a week of runs for the demo user plus one belonging to
// someone else, which must never show up in the list.
func sampleRuns(now time.Time) []runs.Run {
	day := func(n int, h, min int) runs.Verbatim {
		t := now.AddDate(0, 0, -n)
		return runs.Text(time.Date(t.Year(), t.Month(), t.Day(), h, min, 0, 0, time.Local).Format(recordDateLayout))
	}
	n, s := runs.Number, runs.Text
	return []runs.Run{
		{UserID: demoUser.UID, Date: day(6, 7, 5), Distance: n(5.2), Duration: s("28:10"), AverageSpeed: n(11.08)},
		{UserID: demoUser.UID, Date: day(4, 18, 30), Distance: n(8), Duration: s("46:40"), AverageSpeed: n(10.29)},
		{UserID: "someone-else", Date: day(3, 6, 0), Distance: n(21.1), Duration: s("1:45:00"), AverageSpeed: n(12.06)},
		{UserID: demoUser.UID, Date: day(2, 6, 45), Distance: n(3), Duration: n(1080), AverageSpeed: n(10)},
		{UserID: demoUser.UID, Date: day(0, 12, 15), Distance: n(10.5), Duration: s("58:20"), AverageSpeed: n(10.8)},
	}
}

// newDemoBackends returns an in-memory database seeded with sample runs and
// an auth provider with the demo user signed in.
func newDemoBackends(ctx context.Context, now time.Time) (*realtime.MemoryDB, *auth.Memory, error) {
	db := realtime.NewMemory()
	for _, r := range sampleRuns(now) {
		if _, err := db.Push(ctx, runsPath, r); err != nil {
			return nil, nil, err
		}
	}
	u := demoUser
	return db, auth.NewMemory(&u), nil
}
