package services

import (
	"sort"

	"burrow/internal/models"
)

// ThreadedComment 展示用的评论节点
type ThreadedComment struct {
	models.Comment
	Level   int // 在本次展示中的缩进层级，根为 0
	Replies int // 直接回复数
}

// BuildTree 把扁平评论组装成先序遍历的展示序列：父评论之后紧跟其回复。
// 根和每层子评论都按创建时间升序，时间相同按 ID。
// 父评论不在集合内的评论视为根；互为父子的环也会作为根输出，不丢内容。
func BuildTree(flat []models.Comment) []ThreadedComment {
	if len(flat) == 0 {
		return []ThreadedComment{}
	}

	index := make(map[uint]int, len(flat))
	for i, c := range flat {
		if _, dup := index[c.ID]; !dup {
			index[c.ID] = i
		}
	}

	children := make(map[uint][]int, len(flat))
	roots := make([]int, 0, len(flat))
	for i, c := range flat {
		if c.ParentID != nil && *c.ParentID != c.ID {
			if _, ok := index[*c.ParentID]; ok {
				children[*c.ParentID] = append(children[*c.ParentID], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	byCreated := func(ids []int) {
		sort.SliceStable(ids, func(a, b int) bool {
			ca, cb := flat[ids[a]], flat[ids[b]]
			if !ca.CreatedAt.Equal(cb.CreatedAt) {
				return ca.CreatedAt.Before(cb.CreatedAt)
			}
			return ca.ID < cb.ID
		})
	}

	byCreated(roots)
	for id := range children {
		byCreated(children[id])
	}

	out := make([]ThreadedComment, 0, len(flat))
	visited := make([]bool, len(flat))

	var walk func(i, level int)
	walk = func(i, level int) {
		if visited[i] {
			return
		}
		visited[i] = true

		c := flat[i]
		kids := children[c.ID]
		out = append(out, ThreadedComment{Comment: c, Level: level, Replies: len(kids)})
		for _, k := range kids {
			walk(k, level+1)
		}
	}

	for _, r := range roots {
		walk(r, 0)
	}

	// 环上的评论从任何根都不可达
	if len(out) < len(flat) {
		rest := make([]int, 0, len(flat)-len(out))
		for i := range flat {
			if !visited[i] {
				rest = append(rest, i)
			}
		}
		byCreated(rest)
		for _, i := range rest {
			walk(i, 0)
		}
	}

	return out
}
