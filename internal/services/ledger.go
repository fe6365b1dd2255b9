package services

import (
	"context"
	"errors"
	"fmt"

	"burrow/internal/identity"
	"burrow/internal/metrics"
	"burrow/internal/models"
	"burrow/internal/utils"
)

// Outcome 一次投票对台账的影响
type Outcome string

const (
	OutcomeToggledOn  Outcome = "toggled_on"
	OutcomeToggledOff Outcome = "toggled_off"
	OutcomeSwitched   Outcome = "switched"
)

// VoteResult CastVote 的返回值
type VoteResult struct {
	Target    Target           `json:"-"`
	Applied   Outcome          `json:"applied"`
	Direction models.Direction `json:"direction,omitempty"` // 当前生效的方向，取消后为空
	Tally     Tally            `json:"tally"`
	Refreshed bool             `json:"refreshed"` // 计数重算失败时为 false，Tally 不可信
}

// VoteTx 单个事务内的台账操作
type VoteTx interface {
	// FindVote 按 identity_token（MatchAddress 时再 OR address_hash）查找并锁定已有投票，没有返回 nil, nil
	FindVote(ctx context.Context, target Target, voter identity.Voter) (*models.Vote, error)
	// InsertVote 唯一约束冲突时返回 ErrConflict
	InsertVote(ctx context.Context, vote *models.Vote) error
	// DeleteVote 仅当方向仍为 dir 时删除，返回是否删到
	DeleteVote(ctx context.Context, id uint, dir models.Direction) (bool, error)
	// SwitchVote 仅当方向仍为 from 时改为 to，返回是否改到
	SwitchVote(ctx context.Context, id uint, from, to models.Direction) (bool, error)
}

// VoteStore 台账存储
type VoteStore interface {
	TargetExists(ctx context.Context, target Target) (bool, error)
	// InVoteTx 在事务中执行 fn，fn 返回错误则回滚
	InVoteTx(ctx context.Context, fn func(tx VoteTx) error) error
}

const defaultVoteAttempts = 3

// VoteLedger 保证每个 (对象, 身份) 最多一条投票。
// 读改写在同一事务内完成；并发插入撞上唯一索引、或条件更新落空时整体重试。
type VoteLedger struct {
	store    VoteStore
	counter  *Counter
	attempts int
}

func NewVoteLedger(store VoteStore, counter *Counter) *VoteLedger {
	return &VoteLedger{
		store:    store,
		counter:  counter,
		attempts: defaultVoteAttempts,
	}
}

// CastVote 投票：无记录则新增，同方向则取消，反方向则切换。
// 成功后同步重算冗余计数，重算失败只记录日志。
func (l *VoteLedger) CastVote(ctx context.Context, target Target, voter identity.Voter, dir models.Direction) (VoteResult, error) {
	const op = "services.VoteLedger.CastVote"

	input := map[string]string{
		"target_id":   fmt.Sprint(target.ID),
		"target_kind": string(target.Kind),
		"direction":   string(dir),
	}
	if target.ID == 0 {
		return VoteResult{}, invalid("target_id", "Target ID is required", input)
	}
	if !target.Kind.Valid() {
		return VoteResult{}, invalid("target_kind", "Unknown vote target", input)
	}
	if !dir.Valid() {
		return VoteResult{}, invalid("direction", "Vote direction must be up or down", input)
	}

	exists, err := l.store.TargetExists(ctx, target)
	if err != nil {
		return VoteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return VoteResult{}, fmt.Errorf("%s: %s: %w", op, target, ErrNotFound)
	}

	log := utils.Logger(ctx).With("target", target.String(), "voter", identity.Short(voter.Token))

	var res VoteResult
	for attempt := 1; ; attempt++ {
		res = VoteResult{Target: target}
		err = l.store.InVoteTx(ctx, func(tx VoteTx) error {
			applied, current, err := apply(ctx, tx, target, voter, dir)
			if err != nil {
				return err
			}
			res.Applied, res.Direction = applied, current
			return nil
		})
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) || attempt >= l.attempts {
			return VoteResult{}, fmt.Errorf("%s: %w", op, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return VoteResult{}, fmt.Errorf("%s: %w", op, ctxErr)
		}
		metrics.VoteRetries.Inc()
		log.Debug("vote conflict, retrying", "attempt", attempt)
	}

	metrics.VotesCast.WithLabelValues(string(target.Kind), string(res.Applied)).Inc()
	log.Info("vote applied", "applied", res.Applied, "direction", dir)

	tally, err := l.counter.RefreshCounts(ctx, target)
	if err != nil {
		metrics.RecountFailures.WithLabelValues(string(target.Kind)).Inc()
		log.Warn("vote recount failed", "err", err)
		return res, nil
	}
	res.Tally = tally
	res.Refreshed = true

	return res, nil
}

func apply(ctx context.Context, tx VoteTx, target Target, voter identity.Voter, dir models.Direction) (Outcome, models.Direction, error) {
	existing, err := tx.FindVote(ctx, target, voter)
	if err != nil {
		return "", "", err
	}

	switch {
	case existing == nil:
		vote := &models.Vote{
			TargetKind:    target.Kind,
			TargetID:      target.ID,
			IdentityToken: voter.Token,
			AddressHash:   voter.AddressHash,
			Direction:     dir,
		}
		if err := tx.InsertVote(ctx, vote); err != nil {
			return "", "", err
		}
		return OutcomeToggledOn, dir, nil

	case existing.Direction == dir:
		ok, err := tx.DeleteVote(ctx, existing.ID, dir)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return "", "", ErrConflict
		}
		return OutcomeToggledOff, "", nil

	default:
		ok, err := tx.SwitchVote(ctx, existing.ID, existing.Direction, dir)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return "", "", ErrConflict
		}
		return OutcomeSwitched, dir, nil
	}
}
