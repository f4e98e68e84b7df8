package cascade

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ototahmin/pkg/catalog"
)

func TestMachine_Defaults(t *testing.T) {
	m := NewMachine()
	snap := m.Snapshot()

	if diff := cmp.Diff(DefaultFormState(), snap.Form); diff != "" {
		t.Fatalf("unexpected defaults (-want +got):\n%s", diff)
	}
	if snap.Generation != 0 || !snap.Dataset.IsZero() {
		t.Fatalf("expected no dataset before the first load")
	}
}

func TestMachine_LoadAndCascade(t *testing.T) {
	m := NewMachine()
	gen := m.BeginLoad()
	if _, ok := m.Load(gen, fixtureDataset(t)); !ok {
		t.Fatalf("expected first load to apply")
	}

	m.Change(FieldBrand, "Toyota")
	snap := m.Change(FieldSeries, "C-HR")

	if diff := cmp.Diff([]string{"1.8 Hybrid Flame"}, snap.Options.Models); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
	if snap.Generation != gen {
		t.Fatalf("expected generation %d, got %d", gen, snap.Generation)
	}
}

func TestMachine_StaleLoadIsDiscarded(t *testing.T) {
	m := NewMachine()

	older := m.BeginLoad()
	newer := m.BeginLoad()

	fresh := catalog.NewDataset(catalog.Brand{Name: "Fresh"})
	stale := catalog.NewDataset(catalog.Brand{Name: "Stale"})

	if _, ok := m.Load(newer, fresh); !ok {
		t.Fatalf("expected newest generation to apply")
	}
	if _, ok := m.Load(older, stale); ok {
		t.Fatalf("expected older generation to be discarded")
	}
	if _, ok := m.Load(newer, stale); ok {
		t.Fatalf("a generation applies once")
	}
	if diff := cmp.Diff([]string{"Fresh"}, m.Snapshot().Brands()); diff != "" {
		t.Fatalf("brands mismatch (-want +got):\n%s", diff)
	}

	// An older load finishing first is dropped as soon as a newer one was
	// started.
	m2 := NewMachine()
	first := m2.BeginLoad()
	_ = m2.BeginLoad()
	if _, ok := m2.Load(first, stale); ok {
		t.Fatalf("expected superseded generation to be discarded")
	}
	if _, ok := m2.Load(0, fresh); ok {
		t.Fatalf("generation zero is never valid")
	}
}

func TestMachine_ReloadPolicy(t *testing.T) {
	m := NewMachine(WithReloadPolicy(ReloadRevalidate))
	m.Load(m.BeginLoad(), fixtureDataset(t))
	m.Change(FieldBrand, "BMW")
	m.Change(FieldSeries, "5 Serisi")

	snap, ok := m.Load(m.BeginLoad(), catalog.NewDataset(catalog.Brand{Name: "BMW"}))
	if !ok {
		t.Fatalf("expected reload to apply")
	}
	if snap.Form.Brand != "BMW" || snap.Form.Series != "" {
		t.Fatalf("expected series cleared on revalidating reload, got %+v", snap.Form)
	}
}

func TestMachine_InitialFormClearsCascade(t *testing.T) {
	form := DefaultFormState()
	form.Brand = "Toyota"
	form.Series = "Corolla"
	form.Mileage = 42

	snap := NewMachine(WithInitialForm(form)).Snapshot()
	if snap.Form.Brand != "" || snap.Form.Series != "" {
		t.Fatalf("cascading fields must start empty, got %+v", snap.Form)
	}
	if snap.Form.Mileage != 42 {
		t.Fatalf("expected mileage to be kept, got %v", snap.Form.Mileage)
	}
}

func TestMachine_SnapshotIsACopy(t *testing.T) {
	m := NewMachine()
	m.Load(m.BeginLoad(), fixtureDataset(t))
	snap := m.Change(FieldBrand, "Toyota")
	snap.Options.Series[0] = "mutated"

	if got := m.Snapshot().Options.Series[0]; got != "Corolla" {
		t.Fatalf("machine state mutated through snapshot, got %q", got)
	}
}

func TestMachine_Observers(t *testing.T) {
	m := NewMachine()

	var seen []string
	unsubscribe := m.Subscribe(func(s Snapshot) {
		seen = append(seen, s.Form.Brand)
	})

	m.Change(FieldBrand, "Toyota")
	m.Change(FieldBrand, "BMW")
	unsubscribe()
	m.Change(FieldBrand, "Fiat")

	if diff := cmp.Diff([]string{"Toyota", "BMW"}, seen); diff != "" {
		t.Fatalf("observer calls mismatch (-want +got):\n%s", diff)
	}
}

func TestMachine_ConcurrentChanges(t *testing.T) {
	m := NewMachine()
	m.Load(m.BeginLoad(), fixtureDataset(t))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			brand := "Toyota"
			if i%2 == 0 {
				brand = "BMW"
			}
			m.Change(FieldBrand, brand)
			m.Change(FieldSeries, m.Snapshot().Options.Series[0])
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Form.Series != "" && !snap.Dataset.HasSeries(snap.Form.Brand, snap.Form.Series) {
		t.Fatalf("inconsistent selection after concurrent changes: %+v", snap.Form)
	}
	if diff := cmp.Diff(snap.Dataset.Series(snap.Form.Brand), snap.Options.Series); diff != "" {
		t.Fatalf("options out of sync (-want +got):\n%s", diff)
	}
}
