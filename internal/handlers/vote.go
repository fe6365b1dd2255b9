package handlers

import (
	"context"
	"net/http"

	"burrow/internal/identity"
	"burrow/internal/middleware"
	"burrow/internal/models"
	"burrow/internal/services"
	"burrow/internal/utils"

	"github.com/gin-gonic/gin"
)

// VoteCaster 投票台账
type VoteCaster interface {
	CastVote(ctx context.Context, target services.Target, voter identity.Voter, dir models.Direction) (services.VoteResult, error)
}

// Purger 投票或发帖后清空列表缓存
type Purger interface {
	Purge()
}

type VoteHandler struct {
	ledger VoteCaster
	scheme identity.Scheme
	cache  Purger
}

// NewVoteHandler cache 可以为 nil
func NewVoteHandler(ledger VoteCaster, scheme identity.Scheme, cache Purger) *VoteHandler {
	return &VoteHandler{ledger: ledger, scheme: scheme, cache: cache}
}

func (h *VoteHandler) UpvotePost(c *gin.Context)      { h.vote(c, models.TargetPost, models.DirectionUp) }
func (h *VoteHandler) DownvotePost(c *gin.Context)    { h.vote(c, models.TargetPost, models.DirectionDown) }
func (h *VoteHandler) UpvoteComment(c *gin.Context)   { h.vote(c, models.TargetComment, models.DirectionUp) }
func (h *VoteHandler) DownvoteComment(c *gin.Context) { h.vote(c, models.TargetComment, models.DirectionDown) }

type voteResponse struct {
	TargetKind models.TargetKind `json:"target_kind"`
	TargetID   uint              `json:"target_id"`
	services.VoteResult
}

// vote 路径里的 id 优先，缺失时读表单 target_id
func (h *VoteHandler) vote(c *gin.Context, kind models.TargetKind, dir models.Direction) {
	id := utils.ParseID(c.Param("id"))
	if id == 0 {
		id = utils.ParseID(c.PostForm("target_id"))
	}

	voter := middleware.GetIdentity(c).Voter(h.scheme)
	target := services.Target{Kind: kind, ID: id}

	res, err := h.ledger.CastVote(c.Request.Context(), target, voter, dir)
	if err != nil {
		HandleError(c, err)
		return
	}
	if h.cache != nil {
		h.cache.Purge()
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, voteResponse{TargetKind: kind, TargetID: id, VoteResult: res})
		return
	}
	redirectBack(c)
}
