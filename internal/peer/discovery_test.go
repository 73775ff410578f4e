package peer

import (
	"testing"
	"time"
)

func TestParseBeacon_ValidPayload(t *testing.T) {
	rec, ok := parseBeacon("alice:workstation1:5042", "192.168.1.10")
	if !ok {
		t.Fatalf("expected a valid beacon to parse")
	}
	if rec.Username != "alice" || rec.Hostname != "workstation1" || rec.TCPPort != 5042 || rec.IPAddress != "192.168.1.10" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestParseBeacon_RejectsMalformedPayload(t *testing.T) {
	cases := []string{"", "only:two", "a:b:notaport", "too:many:parts:here"}
	for _, c := range cases {
		if _, ok := parseBeacon(c, "127.0.0.1"); ok {
			t.Fatalf("expected %q to be rejected", c)
		}
	}
}

func TestDirectory_UpsertReplacesByHostnameAndPort(t *testing.T) {
	dir := NewDirectory()
	first, _ := parseBeacon("alice:host1:5000", "10.0.0.1")
	dir.Upsert(first)

	second, _ := parseBeacon("bob:host1:5000", "10.0.0.2")
	dir.Upsert(second)

	list := dir.List()
	if len(list) != 1 {
		t.Fatalf("expected the second beacon to replace the first by (hostname, port), got %+v", list)
	}
	if list[0].Username != "bob" {
		t.Fatalf("expected the latest beacon's data to win, got %+v", list[0])
	}
}

func TestDirectory_DistinctPortsAreDistinctPeers(t *testing.T) {
	dir := NewDirectory()
	a, _ := parseBeacon("alice:host1:5000", "10.0.0.1")
	b, _ := parseBeacon("alice:host1:5001", "10.0.0.1")
	dir.Upsert(a)
	dir.Upsert(b)

	if len(dir.List()) != 2 {
		t.Fatalf("expected 2 distinct peers keyed by port, got %+v", dir.List())
	}
}

func TestDirectory_PruneIsNoOpForZeroWindow(t *testing.T) {
	dir := NewDirectory()
	rec, _ := parseBeacon("alice:host1:5000", "10.0.0.1")
	rec.LastSeen = time.Now().Add(-time.Hour)
	dir.Upsert(rec)

	dir.Prune(0)

	if len(dir.List()) != 1 {
		t.Fatalf("expected Prune(0) to leave every peer in place, got %+v", dir.List())
	}
}

func TestDirectory_PruneEvictsStalePeers(t *testing.T) {
	dir := NewDirectory()
	stale, _ := parseBeacon("alice:stale-host:5000", "10.0.0.1")
	stale.LastSeen = time.Now().Add(-time.Hour)
	dir.Upsert(stale)

	fresh, _ := parseBeacon("bob:fresh-host:5001", "10.0.0.2")
	fresh.LastSeen = time.Now()
	dir.Upsert(fresh)

	dir.Prune(time.Minute)

	list := dir.List()
	if len(list) != 1 {
		t.Fatalf("expected exactly 1 peer to survive pruning, got %+v", list)
	}
	if list[0].Hostname != "fresh-host" {
		t.Fatalf("expected the fresh peer to survive, got %+v", list[0])
	}
}

func TestBeacon_DefaultsToFixedInterval(t *testing.T) {
	b := NewBeacon(nil, "alice", "host1", 5000)
	if b.interval != 5*time.Second {
		t.Fatalf("expected default 5s interval, got %v", b.interval)
	}
	if len(b.groups) != 2 {
		t.Fatalf("expected default multicast groups, got %+v", b.groups)
	}
}

func TestBeacon_WithCronScheduleOverridesInterval(t *testing.T) {
	b := NewBeacon(nil, "alice", "host1", 5000, WithCronSchedule("*/5 * * * *"))
	if b.cronSpec != "*/5 * * * *" {
		t.Fatalf("expected cron spec set, got %q", b.cronSpec)
	}
}
