package session

import (
	"testing"

	"github.com/dealsignal/call-analysis/internal/analysis"
)

func chunkWithID(id string) analysis.Chunk {
	return analysis.Chunk{ID: id, Text: "hello there"}
}

func TestChunkBuffer_Append(t *testing.T) {
	b := NewChunkBuffer(10)

	b.Append(chunkWithID("a"), chunkWithID("b"), chunkWithID("c"))
	if b.Len() != 3 {
		t.Errorf("Expected 3 chunks, got %d", b.Len())
	}

	got := b.Snapshot()
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Errorf("Snapshot out of order: %v", got)
	}
}

func TestChunkBuffer_EvictsOldest(t *testing.T) {
	b := NewChunkBuffer(3)

	b.Append(chunkWithID("a"), chunkWithID("b"), chunkWithID("c"))
	if !b.IsFull() {
		t.Error("Expected buffer to be full at capacity")
	}

	b.Append(chunkWithID("d"), chunkWithID("e"))
	if b.Len() != 3 {
		t.Errorf("Expected 3 chunks after eviction, got %d", b.Len())
	}

	got := b.Snapshot()
	expected := []string{"c", "d", "e"}
	for i, id := range expected {
		if got[i].ID != id {
			t.Errorf("Expected %q at position %d, got %q", id, i, got[i].ID)
		}
	}
}

func TestChunkBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewChunkBuffer(5)
	b.Append(chunkWithID("a"))

	snap := b.Snapshot()
	snap[0].ID = "mutated"

	if b.Snapshot()[0].ID != "a" {
		t.Error("Snapshot aliases internal storage")
	}
}

func TestChunkBuffer_Clear(t *testing.T) {
	b := NewChunkBuffer(5)
	b.Append(chunkWithID("a"), chunkWithID("b"))

	b.Clear()
	if b.Len() != 0 {
		t.Errorf("Expected 0 chunks after clear, got %d", b.Len())
	}
	if len(b.Snapshot()) != 0 {
		t.Error("Expected empty snapshot after clear")
	}

	b.Append(chunkWithID("c"))
	if got := b.Snapshot(); len(got) != 1 || got[0].ID != "c" {
		t.Errorf("Buffer unusable after clear: %v", got)
	}
}

func TestChunkBuffer_ZeroCapacity(t *testing.T) {
	b := NewChunkBuffer(0)
	b.Append(chunkWithID("a"), chunkWithID("b"))

	if b.Len() != 1 {
		t.Errorf("Expected capacity floor of 1, got len %d", b.Len())
	}
	if b.Snapshot()[0].ID != "b" {
		t.Error("Expected most recent chunk to survive")
	}
}
