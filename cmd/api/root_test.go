package main

import "testing"

func TestRootCommand_Subcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "sweep": false, "migrate": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected %q subcommand", name)
		}
	}
}

func TestSweepCommand_LimitFlag(t *testing.T) {
	f := sweepCmd.Flags().Lookup("limit")
	if f == nil || f.DefValue != "100" {
		t.Fatalf("expected --limit with default 100, got %+v", f)
	}
}
