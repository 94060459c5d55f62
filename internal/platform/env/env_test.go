package env

import (
	"testing"
	"time"
)

func TestStringDefault(t *testing.T) {
	got := String("DATABUILD_TEST_STRING_UNSET", "fallback")
	if got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}
}

func TestStringOverride(t *testing.T) {
	t.Setenv("DATABUILD_TEST_STRING", "postgres://db/one")
	got := String("DATABUILD_TEST_STRING", "fallback")
	if got != "postgres://db/one" {
		t.Fatalf("String()=%q, want override", got)
	}
}

func TestStringEmptyValueWins(t *testing.T) {
	t.Setenv("DATABUILD_TEST_STRING_EMPTY", "")
	got := String("DATABUILD_TEST_STRING_EMPTY", "fallback")
	if got != "" {
		t.Fatalf("String()=%q, want empty value over default", got)
	}
}

func TestDuration(t *testing.T) {
	got, err := Duration("DATABUILD_TEST_DURATION_UNSET", 2*time.Second)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if got != 2*time.Second {
		t.Fatalf("Duration()=%v, want default 2s", got)
	}

	t.Setenv("DATABUILD_TEST_DURATION", "750ms")
	got, err = Duration("DATABUILD_TEST_DURATION", 2*time.Second)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if got != 750*time.Millisecond {
		t.Fatalf("Duration()=%v, want 750ms", got)
	}
}

func TestDurationInvalid(t *testing.T) {
	t.Setenv("DATABUILD_TEST_DURATION_BAD", "soon")
	if _, err := Duration("DATABUILD_TEST_DURATION_BAD", 2*time.Second); err == nil {
		t.Fatal("Duration() expected error")
	}
}

func TestBool(t *testing.T) {
	got, err := Bool("DATABUILD_TEST_BOOL_UNSET", true)
	if err != nil {
		t.Fatalf("Bool() err=%v", err)
	}
	if !got {
		t.Fatal("Bool()=false, want default true")
	}

	t.Setenv("DATABUILD_TEST_BOOL", "false")
	got, err = Bool("DATABUILD_TEST_BOOL", true)
	if err != nil {
		t.Fatalf("Bool() err=%v", err)
	}
	if got {
		t.Fatal("Bool()=true, want false")
	}
}

func TestBoolInvalid(t *testing.T) {
	t.Setenv("DATABUILD_TEST_BOOL_BAD", "yep")
	if _, err := Bool("DATABUILD_TEST_BOOL_BAD", false); err == nil {
		t.Fatal("Bool() expected error")
	}
}

func TestInt(t *testing.T) {
	got, err := Int("DATABUILD_TEST_INT_UNSET", 10)
	if err != nil {
		t.Fatalf("Int() err=%v", err)
	}
	if got != 10 {
		t.Fatalf("Int()=%d, want default 10", got)
	}

	t.Setenv("DATABUILD_TEST_INT", "3")
	got, err = Int("DATABUILD_TEST_INT", 10)
	if err != nil {
		t.Fatalf("Int() err=%v", err)
	}
	if got != 3 {
		t.Fatalf("Int()=%d, want 3", got)
	}
}

func TestIntInvalid(t *testing.T) {
	t.Setenv("DATABUILD_TEST_INT_BAD", "many")
	if _, err := Int("DATABUILD_TEST_INT_BAD", 10); err == nil {
		t.Fatal("Int() expected error")
	}
}
