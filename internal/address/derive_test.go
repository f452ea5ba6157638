package address_test

import (
	"testing"

	"github.com/streamvault/streamvault/internal/address"
)

func TestDeriveIsDeterministic(t *testing.T) {
	a := address.Stream([]byte("host-1"), []byte("friday-stream"))
	b := address.Stream([]byte("host-1"), []byte("friday-stream"))
	if a != b {
		t.Errorf("Stream derivation not deterministic: %s != %s", a, b)
	}
}

func TestDeriveDistinguishesSeedBoundaries(t *testing.T) {
	// "ab","c" must not collide with "a","bc" once framed.
	a := address.Derive("x", []byte("ab"), []byte("c"))
	b := address.Derive("x", []byte("a"), []byte("bc"))
	if a == b {
		t.Errorf("Derive collided across seed boundary: %s", a)
	}
}

func TestDeriveDistinguishesTag(t *testing.T) {
	seed := []byte("same-seed")
	a := address.Derive(address.TagStream, seed)
	b := address.Derive(address.TagDonorAccount, seed)
	if a == b {
		t.Errorf("Derive collided across tags: %s", a)
	}
}

func TestDerivedIdentitiesAreScopedToParent(t *testing.T) {
	streamA := address.Stream([]byte("host-1"), []byte("stream-a"))
	streamB := address.Stream([]byte("host-1"), []byte("stream-b"))

	marketA := address.BettingMarket(streamA)
	marketB := address.BettingMarket(streamB)
	if marketA == marketB {
		t.Errorf("BettingMarket not scoped to parent stream")
	}

	posA := address.BettorPosition(marketA, []byte("bettor-1"))
	posB := address.BettorPosition(marketB, []byte("bettor-1"))
	if posA == posB {
		t.Errorf("BettorPosition not scoped to parent market")
	}
}

func TestIDStringIsHex(t *testing.T) {
	id := address.Stream([]byte("host"), []byte("name"))
	s := id.String()
	if len(s) != 64 {
		t.Fatalf("String() length = %d, want 64", len(s))
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("String() contains non-hex char %q", c)
		}
	}
}

func TestZeroIDIsZero(t *testing.T) {
	var id address.ID
	if !id.IsZero() {
		t.Errorf("zero-value ID should report IsZero()")
	}
	derived := address.Stream([]byte("h"), []byte("n"))
	if derived.IsZero() {
		t.Errorf("derived ID should not report IsZero()")
	}
}
