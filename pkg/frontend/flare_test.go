package frontend

import "testing"

func TestFlareArmIdempotentUntilDrained(t *testing.T) {
	f, err := newFlare()
	if err != nil {
		t.Fatalf("newFlare: %v", err)
	}
	defer f.Close()

	f.Arm()
	f.Arm() // idempotent: must not write a second byte or deadlock Drain

	select {
	case <-f.wake():
	default:
		t.Fatal("expected wake to have fired after Arm")
	}

	f.Drain()

	select {
	case <-f.wake():
		t.Fatal("wake should not fire again before the next Arm")
	default:
	}
}

func TestFlareDrainWithoutArmIsNoop(t *testing.T) {
	f, err := newFlare()
	if err != nil {
		t.Fatalf("newFlare: %v", err)
	}
	defer f.Close()

	f.Drain() // must not block
}
