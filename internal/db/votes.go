package db

import (
	"context"
	"fmt"

	"burrow/internal/identity"
	"burrow/internal/models"
	"burrow/internal/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TargetExists 投票对象是否存在
func (s *Store) TargetExists(ctx context.Context, target services.Target) (bool, error) {
	model, err := targetModel(target.Kind)
	if err != nil {
		return false, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", target.ID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("db.Store.TargetExists: %w", err)
	}
	return count > 0, nil
}

// InVoteTx fn 返回错误时整个事务回滚
func (s *Store) InVoteTx(ctx context.Context, fn func(tx services.VoteTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&voteTx{tx: tx})
	})
}

// CountVotes 按方向统计台账
func (s *Store) CountVotes(ctx context.Context, target services.Target) (services.Tally, error) {
	type row struct {
		Direction models.Direction
		N         int
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Select("direction, COUNT(*) AS n").
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Group("direction").
		Scan(&rows).Error
	if err != nil {
		return services.Tally{}, fmt.Errorf("db.Store.CountVotes: %w", err)
	}

	var t services.Tally
	for _, r := range rows {
		switch r.Direction {
		case models.DirectionUp:
			t.Up = r.N
		case models.DirectionDown:
			t.Down = r.N
		}
	}
	return t, nil
}

// SetTally 覆盖冗余计数，不改 updated_at
func (s *Store) SetTally(ctx context.Context, target services.Target, tally services.Tally) error {
	const op = "db.Store.SetTally"

	model, err := targetModel(target.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res := s.db.WithContext(ctx).Model(model).
		Where("id = ?", target.ID).
		UpdateColumns(map[string]interface{}{"upvotes": tally.Up, "downvotes": tally.Down})
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, services.ErrNotFound)
	}
	return nil
}

func targetModel(kind models.TargetKind) (interface{}, error) {
	switch kind {
	case models.TargetPost:
		return &models.Post{}, nil
	case models.TargetComment:
		return &models.Comment{}, nil
	}
	return nil, fmt.Errorf("unknown target kind %q: %w", kind, services.ErrValidation)
}

type voteTx struct {
	tx *gorm.DB
}

// FindVote 锁定已有投票。MatchAddress 时 token 命中的行优先。
func (t *voteTx) FindVote(ctx context.Context, target services.Target, voter identity.Voter) (*models.Vote, error) {
	q := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID)

	if voter.MatchAddress && voter.AddressHash != "" {
		q = q.Where(t.tx.Where("identity_token = ?", voter.Token).Or("address_hash = ?", voter.AddressHash)).
			Clauses(clause.OrderBy{Expression: clause.Expr{
				SQL:                "CASE WHEN identity_token = ? THEN 0 ELSE 1 END, id",
				Vars:               []interface{}{voter.Token},
				WithoutParentheses: true,
			}})
	} else {
		q = q.Where("identity_token = ?", voter.Token)
	}

	var vote models.Vote
	err := q.Limit(1).Find(&vote).Error
	if err != nil {
		return nil, fmt.Errorf("db.voteTx.FindVote: %w", err)
	}
	if vote.ID == 0 {
		return nil, nil
	}
	return &vote, nil
}

// InsertVote 唯一索引冲突返回 ErrConflict
func (t *voteTx) InsertVote(ctx context.Context, vote *models.Vote) error {
	if err := t.tx.WithContext(ctx).Create(vote).Error; err != nil {
		return fmt.Errorf("db.voteTx.InsertVote: %w", mapErr(err))
	}
	return nil
}

func (t *voteTx) DeleteVote(ctx context.Context, id uint, dir models.Direction) (bool, error) {
	res := t.tx.WithContext(ctx).
		Where("id = ? AND direction = ?", id, dir).
		Delete(&models.Vote{})
	if res.Error != nil {
		return false, fmt.Errorf("db.voteTx.DeleteVote: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *voteTx) SwitchVote(ctx context.Context, id uint, from, to models.Direction) (bool, error) {
	res := t.tx.WithContext(ctx).Model(&models.Vote{}).
		Where("id = ? AND direction = ?", id, from).
		Update("direction", to)
	if res.Error != nil {
		return false, fmt.Errorf("db.voteTx.SwitchVote: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
