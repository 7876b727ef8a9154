package version

import "testing"

func TestInfo_Defaults(t *testing.T) {
	bi := Info()
	if bi.Service != "insights" {
		t.Fatalf("Service = %q", bi.Service)
	}
	if bi.Version != "dev" || bi.Commit != "none" || bi.Date != "unknown" {
		t.Fatalf("unstamped build = %+v", bi)
	}
}
