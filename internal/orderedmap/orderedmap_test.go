package orderedmap

import (
	"reflect"
	"testing"
)

func TestSetPreservesInsertionOrder(t *testing.T) {
	m := New[int]()
	m.Set("b", 2)
	m.Set("a", 1)
	m.Set("c", 3)

	want := []string{"b", "a", "c"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestSetOverwriteKeepsOriginalPosition(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 99)

	want := []string{"a", "b"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	v, ok := m.Get("a")
	if !ok || v != 99 {
		t.Fatalf("Get(a) = %v, %v, want 99, true", v, ok)
	}
}

func TestDeleteCompactsKeyOrder(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Delete("b")

	want := []string{"a", "c"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if _, ok := m.Get("b"); ok {
		t.Fatal("Get(b) found after Delete")
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Delete("nonexistent")
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func TestGetMissing(t *testing.T) {
	m := New[string]()
	if _, ok := m.Get("missing"); ok {
		t.Fatal("Get(missing) reported found")
	}
}
