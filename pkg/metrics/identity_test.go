package metrics

import "testing"

func TestIDKey(t *testing.T) {
	tests := []struct {
		name string
		id   ID
		want string
	}{
		{
			name: "no tags",
			id:   NewID("requests", "http", nil),
			want: "http/requests",
		},
		{
			name: "tags sorted",
			id:   NewID("requests", "http", map[string]string{"zone": "b", "env": "prod"}),
			want: "http/requests{env=prod,zone=b}",
		},
		{
			name: "empty group",
			id:   NewID("alloc", "", nil),
			want: "/alloc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIDTagOrderIrrelevant(t *testing.T) {
	a := NewID("x", "g", map[string]string{"a": "1", "b": "2"})
	b := NewID("x", "g", map[string]string{"b": "2", "a": "1"})
	if a.Key() != b.Key() {
		t.Errorf("keys differ for equal tag sets: %q vs %q", a.Key(), b.Key())
	}
}

func TestIDTagsCopied(t *testing.T) {
	src := map[string]string{"env": "prod"}
	id := NewID("x", "g", src)
	src["env"] = "dev"
	if got := id.Tags()["env"]; got != "prod" {
		t.Errorf("tags aliased the caller map: got %q", got)
	}

	out := id.Tags()
	out["env"] = "stage"
	if got := id.Tags()["env"]; got != "prod" {
		t.Errorf("Tags() returned an aliased map: got %q", got)
	}
}

func TestMetaValues(t *testing.T) {
	m := Metadata{
		"unit":     MetaStr("ms"),
		"capacity": MetaNum(1028),
		"debug":    MetaFlag(true),
	}
	if m["unit"].Kind != MetaString || m["unit"].Str != "ms" {
		t.Errorf("unexpected string meta: %+v", m["unit"])
	}
	if m["capacity"].Kind != MetaNumber || m["capacity"].Num != 1028 {
		t.Errorf("unexpected number meta: %+v", m["capacity"])
	}
	if m["debug"].Kind != MetaBool || !m["debug"].Bool {
		t.Errorf("unexpected bool meta: %+v", m["debug"])
	}
}

func TestDescriptorMeta(t *testing.T) {
	c := NewCounter(NewID("x", "g", nil))
	if c.Meta() != nil {
		t.Fatalf("fresh instrument has meta: %v", c.Meta())
	}
	c.SetMeta("unit", MetaStr("bytes"))
	got := c.Meta()
	if got["unit"].Str != "bytes" {
		t.Fatalf("meta not stored: %v", got)
	}
	got["unit"] = MetaStr("rows")
	if c.Meta()["unit"].Str != "bytes" {
		t.Errorf("Meta() returned an aliased map")
	}
}
