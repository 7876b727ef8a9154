package modkit

import "testing"

func TestBuild_DefaultsAndOptions(t *testing.T) {
	t.Parallel()

	if b := Build(); b.Name != "" || b.Ports != nil {
		t.Fatalf("defaults = %+v", b)
	}

	type scopes struct{ N int }
	b := Build(WithName("insights"), WithPorts(scopes{N: 2}))
	if b.Name != "insights" {
		t.Fatalf("Name = %q", b.Name)
	}
	if p, ok := b.Ports.(scopes); !ok || p.N != 2 {
		t.Fatalf("Ports = %#v", b.Ports)
	}
}
