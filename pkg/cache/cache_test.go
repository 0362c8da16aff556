package cache

import (
	"testing"
	"time"
)

func TestKeyStability(t *testing.T) {
	a := Key("text-embedding-004", "RETRIEVAL_QUERY", "revenue Q1 2024")
	b := Key("text-embedding-004", "RETRIEVAL_QUERY", "revenue Q1 2024")
	if a != b {
		t.Errorf("identical inputs produced different keys: %s vs %s", a, b)
	}
}

func TestKeySeparatesModelTaskAndText(t *testing.T) {
	base := Key("model-a", "RETRIEVAL_QUERY", "text")

	variants := []string{
		Key("model-b", "RETRIEVAL_QUERY", "text"),
		Key("model-a", "RETRIEVAL_DOCUMENT", "text"),
		Key("model-a", "RETRIEVAL_QUERY", "other text"),
		// Concatenation ambiguity must not collide.
		Key("model-aRETRIEVAL_QUERY", "", "text"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base key", i)
		}
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	m := NewMemory(time.Minute)

	if _, found := m.Get("missing"); found {
		t.Error("unexpected hit for missing key")
	}

	m.Set("k", []byte("v"), time.Minute)
	got, found := m.Get("k")
	if !found {
		t.Fatal("expected hit after set")
	}
	if string(got) != "v" {
		t.Errorf("got %q, want %q", got, "v")
	}
}

func TestNoopNeverStores(t *testing.T) {
	var n Noop
	n.Set("k", []byte("v"), time.Minute)
	if _, found := n.Get("k"); found {
		t.Error("noop cache must never hit")
	}
}
