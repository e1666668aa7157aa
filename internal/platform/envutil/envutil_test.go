package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "42")
	t.Setenv("ENVUTIL_BAD_INT", "x")
	t.Setenv("ENVUTIL_BOOL", "yes")
	t.Setenv("ENVUTIL_SECONDS", "7")
	t.Setenv("ENVUTIL_LIST", " a, ,b ,")

	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 3); got != 3 {
		t.Fatalf("Int fallback: want=3 got=%d", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool: want=true")
	}
	if got := Seconds("ENVUTIL_SECONDS", time.Second); got != 7*time.Second {
		t.Fatalf("Seconds: want=7s got=%s", got)
	}
	got := List("ENVUTIL_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: unexpected %+v", got)
	}
	if got := String("ENVUTIL_MISSING", "dflt"); got != "dflt" {
		t.Fatalf("String fallback: got=%q", got)
	}
}
