package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warblerhq/warbler/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, userID, text string) (*model.Message, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Message, error)
	// ListByUsers 按时间倒序取一组作者的消息（首页时间线用）
	ListByUsers(ctx context.Context, userIDs []string, limit int) ([]*model.Message, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.Message, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) Create(ctx context.Context, userID, text string) (*model.Message, error) {
	m := &model.Message{ID: uuid.New().String(), UserID: userID, Text: text}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Message{}).Error
	})
}

func (r *messageRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Message, error) {
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *messageRepository) ListByUsers(ctx context.Context, userIDs []string, limit int) ([]*model.Message, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at DESC").
		Limit(limit).Find(&res).Error
	return res, err
}

func (r *messageRepository) ListByIDs(ctx context.Context, ids []string) ([]*model.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC").Find(&res).Error
	return res, err
}

func (r *messageRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt, err
}
