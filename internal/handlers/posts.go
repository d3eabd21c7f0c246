package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/models"
	"github.com/ripplefeed/backend/internal/util"
	"gorm.io/gorm"
)

// maxCountsBatch bounds one counters request; the read path pipelines
// four commands per post.
const maxCountsBatch = 100

// SetRating moves the caller's rating on a post between none, liked and
// disliked. A null rating clears it.
func (h *Handlers) SetRating(c *gin.Context) {
	postID := c.Param("id")
	userID := c.GetString("user_id")

	var req struct {
		Rating *string `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	var target *models.RatingType
	if req.Rating != nil {
		switch models.RatingType(*req.Rating) {
		case models.RatingLike, models.RatingDislike:
			t := models.RatingType(*req.Rating)
			target = &t
		default:
			util.RespondValidationError(c, "rating must be Like, Dislike or null")
			return
		}
	}

	var post models.Post
	err := database.DB.WithContext(c.Request.Context()).Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondWithAPIError(c, apperrors.PostNotFound())
		return
	} else if err != nil {
		util.RespondError(c, err)
		return
	}

	counts, err := h.engagement.SetRating(c.Request.Context(), userID, postID, target)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": postID, "counts": counts})
}

// GetCounts resolves engagement counters for a batch of posts given as a
// comma-separated ids query parameter. A logged-in caller is registered
// as a unique viewer of every post in the batch; anonymous reads only
// observe.
func (h *Handlers) GetCounts(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		util.RespondValidationError(c, "ids query parameter is required")
		return
	}

	ids := strings.Split(raw, ",")
	if len(ids) > maxCountsBatch {
		util.RespondValidationError(c, "too many ids in one request")
		return
	}

	var posts []models.Post
	err := database.DB.WithContext(c.Request.Context()).
		Select("id, views").Where("id IN ?", ids).Find(&posts).Error
	if err != nil {
		util.RespondError(c, err)
		return
	}

	refs := make([]engagement.PostRef, 0, len(posts))
	for _, post := range posts {
		refs = append(refs, engagement.PostRef{ID: post.ID, StoredViews: post.Views})
	}

	counts, err := h.engagement.Counts(c.Request.Context(), refs, h.optionalUserID(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}
