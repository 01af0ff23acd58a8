package model

import "testing"

func TestEncodeVariantsSortedAndVersioned(t *testing.T) {
	encoded := EncodeVariants(map[string]int{"head": 1, "bag": 2, "hair": 0})

	want := "v1;bag:2;hair:0;head:1"
	if encoded != want {
		t.Fatalf("encoded = %q, want %q", encoded, want)
	}
}

func TestEncodeVariantsEmpty(t *testing.T) {
	if got := EncodeVariants(nil); got != "" {
		t.Fatalf("encoded nil map = %q, want empty", got)
	}
	if got := EncodeVariants(map[string]int{}); got != "" {
		t.Fatalf("encoded empty map = %q, want empty", got)
	}
}

func TestDecodeVariantsRoundTrip(t *testing.T) {
	original := map[string]int{"head": 1, "hair": 0, "backpack": 3}

	decoded := DecodeVariants(EncodeVariants(original))

	if len(decoded) != len(original) {
		t.Fatalf("decoded %d entries, want %d", len(decoded), len(original))
	}
	for k, v := range original {
		if decoded[k] != v {
			t.Errorf("decoded[%q] = %d, want %d", k, decoded[k], v)
		}
	}
}

func TestDecodeVariantsLegacyUnversioned(t *testing.T) {
	decoded := DecodeVariants("head:1;hair:0")

	if decoded["head"] != 1 || decoded["hair"] != 0 {
		t.Fatalf("legacy decode = %v", decoded)
	}
}

func TestDecodeVariantsMalformedPairsDropped(t *testing.T) {
	decoded := DecodeVariants("v1;head:1;broken;hair:x;bag:2")

	if len(decoded) != 2 {
		t.Fatalf("decoded %d entries, want 2: %v", len(decoded), decoded)
	}
	if decoded["head"] != 1 || decoded["bag"] != 2 {
		t.Fatalf("decoded = %v", decoded)
	}
}

func TestDecodeVariantsUnknownVersion(t *testing.T) {
	if decoded := DecodeVariants("v9;head:1"); len(decoded) != 0 {
		t.Fatalf("unknown version decode = %v, want empty", decoded)
	}
}

func TestDecodeVariantsEmpty(t *testing.T) {
	if decoded := DecodeVariants(""); len(decoded) != 0 {
		t.Fatalf("empty decode = %v, want empty", decoded)
	}
}
