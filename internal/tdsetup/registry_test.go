package tdsetup

import "testing"

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry()

	first := r.Register("TD Setup", "TD", RangeAware())
	second := r.Register("TD Setup", "TD", CloseOnly())

	if first != second {
		t.Error("expected repeated registration to return the existing descriptor")
	}
	if second.Variant.CloseOnly {
		t.Error("expected the original variant to win on duplicate registration")
	}
	if len(r.Names()) != 1 {
		t.Errorf("expected 1 registered name, got %d", len(r.Names()))
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register("TD Setup", "TD", RangeAware())

	d, ok := r.Lookup("TD Setup")
	if !ok {
		t.Fatal("expected lookup to find registered descriptor")
	}
	if d.Precision != 0 {
		t.Errorf("expected precision 0, got %d", d.Precision)
	}
	if d.Calc == nil || d.Draw == nil || d.Tooltip == nil {
		t.Error("expected all three callbacks to be wired")
	}

	if _, ok := r.Lookup("nope"); ok {
		t.Error("expected lookup miss for unregistered name")
	}
}

func TestRegistry_DescriptorCallbacksWired(t *testing.T) {
	r := NewRegistry()
	d := r.Register("TD Setup", "TD", RangeAware())

	bars := risingBars(13)
	results := d.Calc(bars)
	if len(results) != len(bars) {
		t.Fatalf("expected %d results via descriptor, got %d", len(bars), len(results))
	}
	if results[12].Sell != 9 {
		t.Errorf("expected sell=9 at index 12, got %d", results[12].Sell)
	}

	tt := d.Tooltip(results, 12)
	if v := fieldValue(tt, "Sell Setup"); v != "9" {
		t.Errorf("expected tooltip sell=9, got %q", v)
	}
}

func TestRegisterDefaults_Idempotent(t *testing.T) {
	RegisterDefaults()
	before := len(Default.Names())
	RegisterDefaults()
	after := len(Default.Names())

	if before != 2 || after != 2 {
		t.Errorf("expected exactly 2 stock indicators, got %d then %d", before, after)
	}
	if _, ok := Default.Lookup("TD Setup"); !ok {
		t.Error("expected stock range-aware indicator registered")
	}
	if _, ok := Default.Lookup("TD Setup Close"); !ok {
		t.Error("expected stock close-only indicator registered")
	}
}
