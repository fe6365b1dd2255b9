package services

import (
	"context"
	"errors"
	"sync"

	"burrow/internal/identity"
	"burrow/internal/models"
)

// memStore 内存版台账，InVoteTx 串行执行并在出错时回滚
type memStore struct {
	mu      sync.Mutex
	nextID  uint
	votes   map[uint]models.Vote
	tallies map[Target]Tally

	insertConflicts int   // 接下来多少次 InsertVote 返回 ErrConflict
	findErr         error // FindVote 返回的错误
	setTallyErr     error
	txCalls         int
}

func newMemStore(targets ...Target) *memStore {
	s := &memStore{
		votes:   make(map[uint]models.Vote),
		tallies: make(map[Target]Tally),
	}
	for _, t := range targets {
		s.tallies[t] = Tally{}
	}
	return s
}

func (s *memStore) TargetExists(ctx context.Context, target Target) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tallies[target]
	return ok, nil
}

func (s *memStore) InVoteTx(ctx context.Context, fn func(tx VoteTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCalls++

	snapshot := make(map[uint]models.Vote, len(s.votes))
	for k, v := range s.votes {
		snapshot[k] = v
	}
	if err := fn(memTx{s}); err != nil {
		s.votes = snapshot
		return err
	}
	return nil
}

func (s *memStore) CountVotes(ctx context.Context, target Target) (Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(target), nil
}

func (s *memStore) countLocked(target Target) Tally {
	var t Tally
	for _, v := range s.votes {
		if v.TargetKind != target.Kind || v.TargetID != target.ID {
			continue
		}
		if v.Direction == models.DirectionUp {
			t.Up++
		} else {
			t.Down++
		}
	}
	return t
}

func (s *memStore) SetTally(ctx context.Context, target Target, tally Tally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setTallyErr != nil {
		return s.setTallyErr
	}
	s.tallies[target] = tally
	return nil
}

func (s *memStore) rows(target Target, token string) []models.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Vote
	for _, v := range s.votes {
		if v.TargetKind == target.Kind && v.TargetID == target.ID && v.IdentityToken == token {
			out = append(out, v)
		}
	}
	return out
}

func (s *memStore) tally(target Target) Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tallies[target]
}

type memTx struct {
	s *memStore
}

func (tx memTx) FindVote(ctx context.Context, target Target, voter identity.Voter) (*models.Vote, error) {
	if tx.s.findErr != nil {
		return nil, tx.s.findErr
	}
	var byAddress *models.Vote
	for _, v := range tx.s.votes {
		if v.TargetKind != target.Kind || v.TargetID != target.ID {
			continue
		}
		if v.IdentityToken == voter.Token {
			found := v
			return &found, nil
		}
		if voter.MatchAddress && voter.AddressHash != "" && v.AddressHash == voter.AddressHash && byAddress == nil {
			found := v
			byAddress = &found
		}
	}
	return byAddress, nil
}

func (tx memTx) InsertVote(ctx context.Context, vote *models.Vote) error {
	if tx.s.insertConflicts > 0 {
		tx.s.insertConflicts--
		return ErrConflict
	}
	for _, v := range tx.s.votes {
		if v.TargetKind == vote.TargetKind && v.TargetID == vote.TargetID && v.IdentityToken == vote.IdentityToken {
			return ErrConflict
		}
	}
	tx.s.nextID++
	vote.ID = tx.s.nextID
	tx.s.votes[vote.ID] = *vote
	return nil
}

func (tx memTx) DeleteVote(ctx context.Context, id uint, dir models.Direction) (bool, error) {
	v, ok := tx.s.votes[id]
	if !ok || v.Direction != dir {
		return false, nil
	}
	delete(tx.s.votes, id)
	return true, nil
}

func (tx memTx) SwitchVote(ctx context.Context, id uint, from, to models.Direction) (bool, error) {
	v, ok := tx.s.votes[id]
	if !ok || v.Direction != from {
		return false, nil
	}
	v.Direction = to
	tx.s.votes[id] = v
	return true, nil
}

var errStorage = errors.New("connection reset by peer")

// queueRecorder 记录排名更新请求
type queueRecorder struct {
	mu  sync.Mutex
	ids []uint
}

func (q *queueRecorder) ScheduleUpdate(postID uint) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, postID)
}
