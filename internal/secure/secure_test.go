package secure

import "testing"

func TestCryptIsInvolution(t *testing.T) {
	cases := []struct{ data, key string }{
		{"www.example", "0123456789abcdef"},
		{"", "k"},
		{"SELECT * FROM users", "\x00\xff key"},
		{"/", "x"},
	}
	for _, tc := range cases {
		if got := Crypt(Crypt(tc.data, tc.key), tc.key); got != tc.data {
			t.Errorf("Crypt(Crypt(%q, %q)) = %q, want the original", tc.data, tc.key, got)
		}
	}
}

func TestCryptChangesData(t *testing.T) {
	if Crypt("payload", "key") == "payload" {
		t.Error("transform with a key must not be identity")
	}
}

func TestCryptEmptyKeyPassesThrough(t *testing.T) {
	if got := Crypt("payload", ""); got != "payload" {
		t.Errorf("empty key must pass data through, got %q", got)
	}
}

func TestSharedSecretSymmetry(t *testing.T) {
	a := NewKeyPair(1)
	b := NewKeyPair(601)

	sa := a.SharedSecret(b.Public)
	sb := b.SharedSecret(a.Public)
	if sa != sb {
		t.Fatal("both endpoints must derive the same shared secret")
	}
	if len(sa) != 16 {
		t.Errorf("secret length = %d, want 16", len(sa))
	}
}

func TestKeyPairDeterministic(t *testing.T) {
	if NewKeyPair(7).Public != NewKeyPair(7).Public {
		t.Error("key derivation must be stable per address")
	}
	if NewKeyPair(7).Public == NewKeyPair(8).Public {
		t.Error("different addresses must get different keys")
	}
}
