package models

import (
	"time"
)

// TargetKind 投票对象类型
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

func (k TargetKind) Valid() bool {
	return k == TargetPost || k == TargetComment
}

// Direction 投票方向
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Opposite 反方向
func (d Direction) Opposite() Direction {
	if d == DirectionUp {
		return DirectionDown
	}
	return DirectionUp
}

// Vote 匿名投票记录。
// 同一 (target_kind, target_id, identity_token) 最多一行，由唯一索引保证。
// address_hash 只用于过渡期的 OR 匹配，不参与唯一约束。
type Vote struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TargetKind    TargetKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_vote_target_identity,priority:1;index:idx_vote_target,priority:1;check:chk_vote_target_kind,target_kind IN ('post','comment')" json:"target_kind"`
	TargetID      uint       `gorm:"not null;uniqueIndex:idx_vote_target_identity,priority:2;index:idx_vote_target,priority:2" json:"target_id"`
	IdentityToken string     `gorm:"size:128;not null;uniqueIndex:idx_vote_target_identity,priority:3" json:"-"`
	AddressHash   string     `gorm:"size:128;index" json:"-"`
	Direction     Direction  `gorm:"type:varchar(8);not null;check:chk_vote_direction,direction IN ('up','down')" json:"direction"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
