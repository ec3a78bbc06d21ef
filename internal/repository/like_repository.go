package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/warblerhq/warbler/internal/model"
)

type LikeRepository interface {
	Create(ctx context.Context, userID, messageID string) error
	Delete(ctx context.Context, userID, messageID string) error
	Exists(ctx context.Context, userID, messageID string) (bool, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Like, error)
	CountByMessage(ctx context.Context, messageID string) (int64, error)
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Create(ctx context.Context, userID, messageID string) error {
	l := &model.Like{ID: uuid.New().String(), UserID: userID, MessageID: messageID}
	// 幂等：重复点赞不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l).Error
}

func (r *likeRepository) Delete(ctx context.Context, userID, messageID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&model.Like{}).Error
}

func (r *likeRepository) Exists(ctx context.Context, userID, messageID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *likeRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Like, error) {
	var res []*model.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *likeRepository) CountByMessage(ctx context.Context, messageID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("message_id = ?", messageID).Count(&cnt).Error
	return cnt, err
}
