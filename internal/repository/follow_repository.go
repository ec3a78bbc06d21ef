package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/warblerhq/warbler/internal/model"
)

type FollowRepository interface {
	Create(ctx context.Context, followerID, followeeID string) error
	Delete(ctx context.Context, followerID, followeeID string) error
	Exists(ctx context.Context, followerID, followeeID string) (bool, error)
	ListFollowings(ctx context.Context, followerID string, offset, limit int) ([]*model.Follow, error)
	ListFollowers(ctx context.Context, followeeID string, offset, limit int) ([]*model.Follow, error)
	CountFollowings(ctx context.Context, followerID string) (int64, error)
	CountFollowers(ctx context.Context, followeeID string) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, followerID, followeeID string) error {
	f := &model.Follow{ID: uuid.New().String(), FollowerID: followerID, FolloweeID: followeeID}
	// 幂等：重复关注不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{}).Error
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *followRepository) ListFollowings(ctx context.Context, followerID string, offset, limit int) ([]*model.Follow, error) {
	var res []*model.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ?", followerID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *followRepository) ListFollowers(ctx context.Context, followeeID string, offset, limit int) ([]*model.Follow, error) {
	var res []*model.Follow
	err := r.db.WithContext(ctx).
		Where("followee_id = ?", followeeID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *followRepository) CountFollowings(ctx context.Context, followerID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("follower_id = ?", followerID).Count(&cnt).Error
	return cnt, err
}

func (r *followRepository) CountFollowers(ctx context.Context, followeeID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("followee_id = ?", followeeID).Count(&cnt).Error
	return cnt, err
}
