package paramspace

import "testing"

func TestByIndexResolve(t *testing.T) {
	cases := []struct {
		idx     int
		wantErr bool
	}{
		{0, false},
		{511, false},
		{-1, true},
		{512, true},
	}
	for _, c := range cases {
		got, err := ByIndex(c.idx).Resolve()
		if c.wantErr {
			if err == nil {
				t.Errorf("ByIndex(%d).Resolve() expected error", c.idx)
			}
			continue
		}
		if err != nil {
			t.Errorf("ByIndex(%d).Resolve() unexpected error: %v", c.idx, err)
		}
		if got != c.idx {
			t.Errorf("ByIndex(%d).Resolve() = %d, want %d", c.idx, got, c.idx)
		}
	}
}

func TestByNameWellKnown(t *testing.T) {
	cases := map[string]int{
		"nand_mode": 2,
		"sdk_major": 3,
		"sdk_minor": 4,
		"sdk_misc":  5,
	}
	for name, want := range cases {
		got, err := ByName(name).Resolve()
		if err != nil {
			t.Errorf("ByName(%q).Resolve(): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ByName(%q).Resolve() = %d, want %d", name, got, want)
		}
	}
}

func TestByNameSynonyms(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"nand-mode", 2},
		{"NAND MODE", 2},
		{"nandmode", 2},
		{"SDK-Major", 3},
		{"major", 3},
		{"sdk minor", 4},
		{"minor", 4},
		{"sdk-misc", 5},
		{"misc", 5},
	}
	for _, c := range cases {
		got, err := ByName(c.name).Resolve()
		if err != nil {
			t.Errorf("ByName(%q).Resolve(): %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("ByName(%q).Resolve() = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestByNameNumericFallback(t *testing.T) {
	got, err := ByName("17").Resolve()
	if err != nil {
		t.Fatalf("ByName(\"17\").Resolve(): %v", err)
	}
	if got != 17 {
		t.Errorf("ByName(\"17\").Resolve() = %d, want 17", got)
	}

	if _, err := ByName("512").Resolve(); err == nil {
		t.Error("expected out-of-range error for numeric fallback 512")
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("not_a_real_param").Resolve(); err == nil {
		t.Error("expected error for unknown parameter name")
	}
}
