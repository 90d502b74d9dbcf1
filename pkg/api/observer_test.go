package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBasicMetricsCountsRuns(t *testing.T) {
	m := &BasicMetrics{}
	ctx := context.Background()
	run := &RunInfo{RunID: "r"}

	m.OnRunStart(ctx, run)
	m.OnRunStart(ctx, run)
	m.OnRunStart(ctx, run)
	m.OnRunCompleted(ctx, run)
	m.OnRunFailed(ctx, run, errors.New("boom"))

	snap := m.Snapshot()
	if snap.RunsStarted != 3 || snap.RunsCompleted != 1 || snap.RunsFailed != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.ActiveRuns != 1 {
		t.Fatalf("expected 1 active run, got %d", snap.ActiveRuns)
	}
}

func TestBasicMetricsCountsOnlySuccessfulSteps(t *testing.T) {
	m := &BasicMetrics{}
	ctx := context.Background()
	run := &RunInfo{RunID: "r"}

	m.OnStepCompleted(ctx, run, "a", 0, nil, 10*time.Millisecond)
	m.OnStepCompleted(ctx, run, "b", 1, nil, 30*time.Millisecond)
	m.OnStepCompleted(ctx, run, "c", 2, errors.New("boom"), time.Hour)

	snap := m.Snapshot()
	if snap.StepsExecuted != 2 {
		t.Fatalf("expected 2 executed steps, got %d", snap.StepsExecuted)
	}
	if snap.AvgStepDuration != 20*time.Millisecond {
		t.Fatalf("expected 20ms average, got %v", snap.AvgStepDuration)
	}
}

type countingObserver struct {
	NoopObserver
	starts int
}

func (o *countingObserver) OnRunStart(ctx context.Context, run *RunInfo) {
	o.starts++
}

func TestCompositeObserverFansOut(t *testing.T) {
	a := &countingObserver{}
	b := &countingObserver{}

	obs := NewCompositeObserver(a, nil, b)
	obs.OnRunStart(context.Background(), &RunInfo{})

	if a.starts != 1 || b.starts != 1 {
		t.Fatalf("expected both observers called once, got %d and %d", a.starts, b.starts)
	}
}

func TestCompositeObserverCollapses(t *testing.T) {
	if _, ok := NewCompositeObserver().(NoopObserver); !ok {
		t.Fatal("empty composite should collapse to NoopObserver")
	}

	single := &countingObserver{}
	if got := NewCompositeObserver(single, nil); got != single {
		t.Fatal("single-observer composite should return the observer itself")
	}
}

func TestRegistryPanicsOnBadRegistration(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty node name")
		}
	}()

	NewNodeRegistry().Register("", func(ctx context.Context, state State, tools Tools, config map[string]any) (string, State, string, error) {
		return "", state, "", nil
	})
}

func TestRegistryLookup(t *testing.T) {
	reg := NewNodeRegistry()
	reg.Register("known", func(ctx context.Context, state State, tools Tools, config map[string]any) (string, State, string, error) {
		return "", state, "", nil
	})

	if _, ok := reg.Lookup("known"); !ok {
		t.Fatal("expected registered node to be found")
	}
	if _, ok := reg.Lookup("unknown"); ok {
		t.Fatal("expected unknown node to be absent")
	}
}
