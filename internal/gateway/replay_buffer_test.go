package gateway

import (
	"fmt"
	"testing"
)

func TestReplayBuffer_PushAndRange(t *testing.T) {
	rb := NewReplayBuffer(10)

	for seq := int64(1); seq <= 5; seq++ {
		rb.Push(seq, []byte(fmt.Sprintf("msg-%d", seq)))
	}

	if rb.Len() != 5 {
		t.Fatalf("expected 5 entries, got %d", rb.Len())
	}

	entries := rb.Range(2, 4)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries in range, got %d", len(entries))
	}
	for i, e := range entries {
		wantSeq := int64(2 + i)
		if e.Seq != wantSeq {
			t.Errorf("entry %d: expected seq %d, got %d", i, wantSeq, e.Seq)
		}
		if string(e.Data) != fmt.Sprintf("msg-%d", wantSeq) {
			t.Errorf("entry %d: unexpected data %s", i, e.Data)
		}
	}
}

func TestReplayBuffer_OverwritesOldest(t *testing.T) {
	rb := NewReplayBuffer(3)

	for seq := int64(1); seq <= 5; seq++ {
		rb.Push(seq, []byte(fmt.Sprintf("msg-%d", seq)))
	}

	if rb.Len() != 3 {
		t.Fatalf("expected capped length 3, got %d", rb.Len())
	}

	// Seqs 1-2 were evicted.
	if got := rb.Range(1, 2); len(got) != 0 {
		t.Errorf("expected evicted entries to be gone, got %d", len(got))
	}

	entries := rb.Range(1, 5)
	if len(entries) != 3 {
		t.Fatalf("expected 3 surviving entries, got %d", len(entries))
	}
	if entries[0].Seq != 3 || entries[2].Seq != 5 {
		t.Errorf("expected seqs 3..5, got %d..%d", entries[0].Seq, entries[2].Seq)
	}
}

func TestReplayBuffer_CopiesData(t *testing.T) {
	rb := NewReplayBuffer(4)
	data := []byte("original")
	rb.Push(1, data)
	data[0] = 'X'

	entries := rb.Range(1, 1)
	if len(entries) != 1 || string(entries[0].Data) != "original" {
		t.Error("expected pushed data to be copied, not aliased")
	}
}

func TestReplayBuffer_DefaultCapacity(t *testing.T) {
	rb := NewReplayBuffer(0)
	rb.Push(1, []byte("x"))
	if rb.Len() != 1 {
		t.Errorf("expected usable buffer with default capacity, got len %d", rb.Len())
	}
}
