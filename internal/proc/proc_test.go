package proc

import "testing"

func TestSchedulerFairnessWithinPriorityLevel(t *testing.T) {
	m := New()
	p := m.CreateProcess(0, "worker", 5)
	const n = 4
	seen := make(map[TID]int)
	for i := 0; i < n; i++ {
		th, err := m.CreateThread(p.ID, 5, SavedContext{})
		if err != nil {
			t.Fatalf("CreateThread: %v", err)
		}
		seen[th.ID] = 0
	}

	for i := 0; i < 2*n; i++ {
		th, ok := m.Schedule()
		if !ok {
			t.Fatalf("Schedule() returned no thread at step %d", i)
		}
		seen[th.ID]++
		// simulate the thread yielding back to Ready so the round
		// robin can continue.
		m.SetThreadState(th.ID, Ready)
	}

	for tid, count := range seen {
		if count == 0 {
			t.Errorf("thread %d never scheduled over 2N schedule points", tid)
		}
	}
}

func TestSchedulerStrictPriority(t *testing.T) {
	m := New()
	low := m.CreateProcess(0, "low", 1)
	high := m.CreateProcess(0, "high", 10)
	lowThread, _ := m.CreateThread(low.ID, 1, SavedContext{})
	highThread, _ := m.CreateThread(high.ID, 10, SavedContext{})

	th, ok := m.Schedule()
	if !ok || th.ID != highThread.ID {
		t.Fatalf("expected higher-priority thread scheduled first, got %v", th)
	}
	m.SetThreadState(highThread.ID, HaltSwitch)

	th2, ok := m.Schedule()
	if !ok {
		t.Fatalf("expected a thread to be scheduled")
	}
	if th2.ID != highThread.ID && th2.ID != lowThread.ID {
		t.Fatalf("unexpected thread scheduled: %v", th2)
	}
}

func TestSchedulerIdleWhenNothingReady(t *testing.T) {
	m := New()
	p := m.CreateProcess(0, "sleeper", 3)
	th, _ := m.CreateThread(p.ID, 3, SavedContext{})
	m.SetThreadState(th.ID, Kill)

	if _, ok := m.Schedule(); ok {
		t.Fatalf("expected idle (no runnable thread)")
	}
}

func TestForkAssignsFreshPIDAndClonesThreads(t *testing.T) {
	m := New()
	parent := m.CreateProcess(0, "parent", 2)
	m.CreateThread(parent.ID, 2, SavedContext{PC: 0x1000})
	m.CreateThread(parent.ID, 2, SavedContext{PC: 0x2000})

	child, primary, err := m.Fork(parent.ID)
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if child.ID == parent.ID {
		t.Fatalf("expected fresh pid for child")
	}
	if len(child.ThreadIDs) != len(parent.ThreadIDs) {
		t.Fatalf("expected child to clone every parent thread")
	}
	if primary == nil {
		t.Fatalf("expected a primary thread for the child")
	}
	if child.State != Ready {
		t.Fatalf("expected forked child to be enqueued Ready, got %v", child.State)
	}
}

func TestReplacePreservesIDDestroysExtraThreads(t *testing.T) {
	m := New()
	p := m.CreateProcess(0, "init", 4)
	m.CreateThread(p.ID, 4, SavedContext{PC: 0x1000})
	m.CreateThread(p.ID, 4, SavedContext{PC: 0x2000})

	if err := m.Replace(p.ID, SavedContext{PC: 0x5000}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(p.ThreadIDs) != 1 {
		t.Fatalf("expected exactly one surviving thread, got %d", len(p.ThreadIDs))
	}
	survivor, _ := m.Thread(p.ThreadIDs[0])
	if survivor.SavedContext.PC != 0x5000 {
		t.Fatalf("expected survivor's context rebound to new entry point")
	}
}

func TestMarkKillAndReap(t *testing.T) {
	m := New()
	p := m.CreateProcess(0, "doomed", 1)
	m.CreateThread(p.ID, 1, SavedContext{})

	if err := m.MarkProcessKill(p.ID); err != nil {
		t.Fatalf("MarkProcessKill: %v", err)
	}
	if err := m.ReapProcess(p.ID); err != nil {
		t.Fatalf("ReapProcess: %v", err)
	}
	if _, ok := m.Process(p.ID); ok {
		t.Fatalf("expected process removed after reap")
	}
	if got := m.ProcessesByName("doomed"); len(got) != 0 {
		t.Fatalf("expected name index cleared, got %v", got)
	}
}

func TestProcessesByNameSupportsMultipleForkedWorkers(t *testing.T) {
	m := New()
	a := m.CreateProcess(0, "worker", 1)
	b := m.CreateProcess(0, "worker", 1)
	pids := m.ProcessesByName("worker")
	if len(pids) != 2 || pids[0] != a.ID || pids[1] != b.ID {
		t.Fatalf("expected both workers indexed by name, got %v", pids)
	}
}
