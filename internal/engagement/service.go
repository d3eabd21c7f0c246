package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/metrics"
	"github.com/ripplefeed/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Counts is the engagement tuple the read path assembles per post
type Counts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
	Comments int64 `json:"comments"`
	Views    int64 `json:"views"`
}

// Service serves per-post engagement counters from the cache store and
// refills cold entries from the durable tables.
type Service struct {
	store CounterStore
}

// NewService creates the counter service on the given store
func NewService(store CounterStore) *Service {
	return &Service{store: store}
}

// Counts resolves engagement counters for a batch of posts. Warm entries
// answer from the cache alone; cold ones are recomputed from the durable
// tables, returned immediately, and warmed in the background. Views are
// always the durable raw counter plus the deduplicated estimate. A
// non-empty viewerID registers the caller as a unique viewer of every
// post in the batch.
func (s *Service) Counts(ctx context.Context, refs []PostRef, viewerID string) (map[string]Counts, error) {
	out := make(map[string]Counts, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	snaps, err := s.store.BatchGet(ctx, refs, viewerID)
	if err != nil {
		return nil, apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}

	m := metrics.Get()
	var coldRatings, coldComments []string
	for _, ref := range refs {
		snap := snaps[ref.ID]
		c := Counts{Views: ref.StoredViews + snap.ViewEstimate}

		likes, likesOK := snap.Fields[FieldLikes]
		dislikes, dislikesOK := snap.Fields[FieldDislikes]
		if likesOK && dislikesOK {
			c.Likes, c.Dislikes = likes, dislikes
			m.CounterCacheHitsTotal.WithLabelValues("rating").Inc()
		} else {
			coldRatings = append(coldRatings, ref.ID)
			m.CounterCacheMissesTotal.WithLabelValues("rating").Inc()
		}

		if comments, ok := snap.Fields[FieldComments]; ok {
			c.Comments = comments
			m.CounterCacheHitsTotal.WithLabelValues("comments").Inc()
		} else {
			coldComments = append(coldComments, ref.ID)
			m.CounterCacheMissesTotal.WithLabelValues("comments").Inc()
		}

		out[ref.ID] = c
	}

	if len(coldRatings) == 0 && len(coldComments) == 0 {
		return out, nil
	}

	warm := make(map[string]map[Field]int64, len(coldRatings)+len(coldComments))
	stage := func(postID string, field Field, value int64) {
		entry, ok := warm[postID]
		if !ok {
			entry = make(map[Field]int64, 3)
			warm[postID] = entry
		}
		entry[field] = value
		c := out[postID]
		switch field {
		case FieldLikes:
			c.Likes = value
		case FieldDislikes:
			c.Dislikes = value
		case FieldComments:
			c.Comments = value
		}
		out[postID] = c
	}

	if len(coldRatings) > 0 {
		// Zero both fields up front so a post nobody rated still warms
		// as a complete entry instead of staying cold forever.
		for _, id := range coldRatings {
			stage(id, FieldLikes, 0)
			stage(id, FieldDislikes, 0)
		}

		var rows []struct {
			PostID string
			Type   models.RatingType
			Total  int64
		}
		err := database.DB.WithContext(ctx).
			Model(&models.PostRating{}).
			Select("post_id, type, COUNT(*) AS total").
			Where("post_id IN ?", coldRatings).
			Group("post_id").Group("type").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to recount ratings: %w", err)
		}
		for _, row := range rows {
			field := FieldLikes
			if row.Type == models.RatingDislike {
				field = FieldDislikes
			}
			stage(row.PostID, field, row.Total)
		}
	}

	if len(coldComments) > 0 {
		for _, id := range coldComments {
			stage(id, FieldComments, 0)
		}

		var rows []struct {
			PostID string
			Total  int64
		}
		err := database.DB.WithContext(ctx).
			Model(&models.Comment{}).
			Select("post_id, COUNT(*) AS total").
			Where("post_id IN ?", coldComments).
			Group("post_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to recount comments: %w", err)
		}
		for _, row := range rows {
			stage(row.PostID, FieldComments, row.Total)
		}
	}

	// Fire-and-forget: the caller already holds correct values, so a
	// failed warm only costs the next reader a recount.
	go func() {
		if err := s.store.Warm(context.Background(), warm); err != nil {
			metrics.Get().CounterRefillFailuresTotal.Inc()
			logger.Log.Warn("counter cache refill failed",
				zap.Int("posts", len(warm)), zap.Error(err))
		}
	}()

	return out, nil
}

// ApplyDelta nudges one counter field on a warm entry. Deltas against cold
// entries are silently dropped; the next read recomputes from the durable
// tables anyway. With refresh set, the post's current counters are read
// back and returned.
func (s *Service) ApplyDelta(ctx context.Context, postID string, field Field, delta int64, refresh bool) (*Counts, error) {
	if _, err := s.store.IncrField(ctx, postID, field, delta); err != nil {
		return nil, apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}
	if !refresh {
		return nil, nil
	}

	counts, err := s.Counts(ctx, []PostRef{{ID: postID}}, "")
	if err != nil {
		return nil, err
	}
	c := counts[postID]
	return &c, nil
}

// SetRating moves a user's rating on a post through the three states none,
// liked and disliked. A nil target clears the rating. Requests that would
// not change state fail with a no-op conflict. The durable row is the
// source of truth; cached counters follow via warm-only deltas.
func (s *Service) SetRating(ctx context.Context, userID, postID string, target *models.RatingType) (*Counts, error) {
	var existing models.PostRating
	err := database.DB.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&existing).Error
	has := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load rating: %w", err)
	}

	if target == nil {
		if !has {
			return nil, apperrors.NoOpRating()
		}
		field := FieldLikes
		if existing.Type == models.RatingDislike {
			field = FieldDislikes
		}
		if err := database.DB.WithContext(ctx).Delete(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to clear rating: %w", err)
		}
		return s.ApplyDelta(ctx, postID, field, -1, true)
	}

	if has && existing.Type == *target {
		return nil, apperrors.NoOpRating()
	}

	if has {
		// Switching sides: two separate single-field deltas, never a swap
		oldField := FieldLikes
		if existing.Type == models.RatingDislike {
			oldField = FieldDislikes
		}
		err := database.DB.WithContext(ctx).
			Model(&existing).Update("type", *target).Error
		if err != nil {
			return nil, fmt.Errorf("failed to update rating: %w", err)
		}
		if _, err := s.ApplyDelta(ctx, postID, oldField, -1, false); err != nil {
			return nil, err
		}
	} else {
		rec := models.PostRating{PostID: postID, UserID: userID, Type: *target}
		if err := database.DB.WithContext(ctx).Create(&rec).Error; err != nil {
			return nil, fmt.Errorf("failed to store rating: %w", err)
		}
	}

	newField := FieldLikes
	if *target == models.RatingDislike {
		newField = FieldDislikes
	}
	return s.ApplyDelta(ctx, postID, newField, 1, true)
}
