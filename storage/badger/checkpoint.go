// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// CheckpointRepository keeps one checkpoint per pipeline stage.
type CheckpointRepository struct {
	backend *Backend
	now     func() time.Time
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend, now: time.Now}
}

// SaveCheckpoint replaces the checkpoint of checkpoint.Stage and stamps
// UpdatedAt.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint.Stage == "" {
		return storage.ErrInvalidQuery
	}
	checkpoint.UpdatedAt = r.now().UTC()
	return r.backend.update(func(tx *badger.Txn) error {
		return tx.Set(makeCheckpointKey(checkpoint.Stage), storage.MarshalCheckpoint(checkpoint))
	})
}

// LoadCheckpoint returns nil, nil when the stage never ran.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, stage core.Stage) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		checkpoint, err = loadCheckpoint(tx, stage)
		return err
	}, false)
	return checkpoint, err
}

// ListCheckpoints returns the checkpoints of every stage that ran, in stage
// order, read in one transaction.
func (r *CheckpointRepository) ListCheckpoints(ctx context.Context) ([]*core.Checkpoint, error) {
	var out []*core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, stage := range core.Stages {
			cp, err := loadCheckpoint(tx, stage)
			if err != nil {
				return err
			}
			if cp != nil {
				out = append(out, cp)
			}
		}
		return nil
	}, false)
	return out, err
}

func loadCheckpoint(tx *badger.Txn, stage core.Stage) (*core.Checkpoint, error) {
	cp, err := get(tx, makeCheckpointKey(stage), storage.UnmarshalCheckpoint)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return cp, err
}
