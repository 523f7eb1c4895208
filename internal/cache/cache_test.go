package cache_test

import (
	"testing"

	"irl/internal/cache"
)

func TestKeyDiffersOnSourceOrConfig(t *testing.T) {
	a := cache.Key("fn @f() { %E: ret; }", "sccp,dce")
	b := cache.Key("fn @f() { %E: ret; }", "sccp")
	c := cache.Key("fn @g() { %E: ret; }", "sccp,dce")
	if a == b {
		t.Fatalf("expected different digests for different configs")
	}
	if a == c {
		t.Fatalf("expected different digests for different source")
	}
}

func TestPutGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	c, err := cache.Open("irl-test")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	key := cache.Key("fn @f() { %E: ret; }", "sccp")
	payload := &cache.Payload{
		PrintedIR:    "fn @f() {\n%E:\n\tret;\n}\n",
		GlobalNames:  []string{"@x"},
		GlobalValues: []int64{7},
		Executed:     3,
		Cycles:       5,
	}
	if err := c.Put(key, payload); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var out cache.Payload
	ok, err := c.Get(key, &out)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if out.PrintedIR != payload.PrintedIR || out.Executed != 3 || out.Cycles != 5 {
		t.Fatalf("round-tripped payload mismatch: %+v", out)
	}
}

func TestGetMissesOnUnknownKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	c, err := cache.Open("irl-test")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	var out cache.Payload
	ok, err := c.Get(cache.Key("nothing", "here"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected a cache miss")
	}
}
