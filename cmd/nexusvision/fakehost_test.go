package main

import "testing"

func TestFakeHostRecordsExecutedCode(t *testing.T) {
	h := NewFakeHost()
	if got := h.Executed(); len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}

	h.record("print('a')")
	h.record("print('b')")

	got := h.Executed()
	if len(got) != 2 || got[0] != "print('a')" || got[1] != "print('b')" {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestFakeHostExecutedReturnsACopy(t *testing.T) {
	h := NewFakeHost()
	h.record("one")

	got := h.Executed()
	got[0] = "mutated"

	if again := h.Executed(); again[0] != "one" {
		t.Fatalf("expected Executed to be defensive-copied, got %q", again[0])
	}
}

func TestFakeCodeRunnerRecordsAgainstHost(t *testing.T) {
	runner := fakeCodeRunner("run_code")
	task := runner("a = 1\nb = 2")

	host := NewFakeHost()
	result, err := task(host)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := host.Executed(); len(got) != 1 || got[0] != "a = 1\nb = 2" {
		t.Fatalf("expected code to be recorded, got %v", got)
	}

	want := "run_code: executed 2 line(s) against the fake host"
	if result != want {
		t.Fatalf("expected result %q, got %q", want, result)
	}
}

func TestLineCount(t *testing.T) {
	cases := map[string]int{
		"":          1,
		"one line":  1,
		"a\nb":      2,
		"a\nb\nc\n": 4,
	}
	for input, want := range cases {
		if got := lineCount(input); got != want {
			t.Fatalf("lineCount(%q) = %d, want %d", input, got, want)
		}
	}
}
