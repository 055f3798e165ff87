package brokererr

import (
	"testing"

	"github.com/nimbuskv/broker/pkg/data"
)

func dummyNotAVector() data.Value {
	return data.Int(42)
}

func TestRoundTrip(t *testing.T) {
	cases := []*Error{
		New(KindNone),
		New(KindNoSuchKey),
		Newf(KindBackendFailure, "disk full"),
		{
			Kind:     KindPeerUnavailable,
			Category: KindPeerUnavailable.Category(),
			Context:  &Context{Endpoint: "node-2:9000", Description: "connection refused"},
		},
	}

	for _, original := range cases {
		t.Run(string(original.Kind), func(t *testing.T) {
			encoded := original.ToData()
			decoded, err := FromData(encoded)
			if err != nil {
				t.Fatalf("FromData: %v", err)
			}
			if decoded.Kind != original.Kind {
				t.Fatalf("kind mismatch: got %s want %s", decoded.Kind, original.Kind)
			}
			gotCtx, wantCtx := decoded.Context, original.Context
			switch {
			case gotCtx == nil && wantCtx == nil:
			case gotCtx == nil || wantCtx == nil:
				t.Fatalf("context nilness mismatch: got %v want %v", gotCtx, wantCtx)
			case *gotCtx != *wantCtx:
				t.Fatalf("context mismatch: got %+v want %+v", *gotCtx, *wantCtx)
			}
		})
	}
}

func TestFromDataRejectsMalformed(t *testing.T) {
	if _, err := FromData(dummyNotAVector()); err == nil {
		t.Fatal("expected error for malformed input")
	}
}
