package main

import (
	"path/filepath"
	"testing"

	"github.com/heymumford/migrationcore/infrastructure/config"
	"github.com/heymumford/migrationcore/internal/checkpoint"
)

func TestNewCheckpointStore_FileDriverReturnsFileStore(t *testing.T) {
	cfg := config.CheckpointConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "checkpoints")}

	store, err := newCheckpointStore(cfg)
	if err != nil {
		t.Fatalf("newCheckpointStore: %v", err)
	}
	if _, ok := store.(*checkpoint.FileStore); !ok {
		t.Fatalf("newCheckpointStore() = %T, want *checkpoint.FileStore", store)
	}
}

func TestNewCheckpointStore_DefaultsToMemoryStore(t *testing.T) {
	cases := []string{"", "memory", "not-a-real-driver"}
	for _, driver := range cases {
		t.Run(driver, func(t *testing.T) {
			store, err := newCheckpointStore(config.CheckpointConfig{Driver: driver})
			if err != nil {
				t.Fatalf("newCheckpointStore: %v", err)
			}
			if _, ok := store.(*checkpoint.MemoryStore); !ok {
				t.Fatalf("newCheckpointStore() = %T, want *checkpoint.MemoryStore", store)
			}
		})
	}
}
