package observability

import "testing"

func TestStageWindowSnapshotPercentiles(t *testing.T) {
	w := newStageWindow(100)
	for i := 1; i <= 100; i++ {
		w.Observe(StageChatSend, float64(i))
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("got %d stages, want 1", len(snap.Stages))
	}
	st := snap.Stages[0]
	if st.Stage != StageChatSend || st.Samples != 100 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.P50MS < 50 || st.P50MS > 51 {
		t.Fatalf("P50 = %v, want ~50.5", st.P50MS)
	}
	if st.P95MS < 95 || st.P95MS > 96 {
		t.Fatalf("P95 = %v, want ~95", st.P95MS)
	}
	if st.LastMS != 100 {
		t.Fatalf("LastMS = %v, want 100", st.LastMS)
	}
}

func TestStageWindowWrapsAround(t *testing.T) {
	w := newStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("x", float64(i))
	}

	snap := w.Snapshot()
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("Samples = %d, want window size 4", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 9 {
		t.Fatalf("LastMS = %v, want 9", snap.Stages[0].LastMS)
	}
}

func TestStageWindowIgnoresInvalidSamples(t *testing.T) {
	w := newStageWindow(4)
	w.Observe("", 5)
	w.Observe("x", -1)

	snap := w.Snapshot()
	if len(snap.Stages) != 0 {
		t.Fatalf("invalid samples should be dropped, got %+v", snap.Stages)
	}
}
