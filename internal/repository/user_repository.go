package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/warblerhq/warbler/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	Search(ctx context.Context, keyword string, offset, limit int) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// DeleteCascade 在一个事务内删除用户本体、其消息、点赞以及双向关注边。
	DeleteCascade(ctx context.Context, id string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []*model.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

func (r *userRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]*model.User, error) {
	var res []*model.User
	q := r.db.WithContext(ctx).Order("username ASC").Offset(offset).Limit(limit)
	if keyword != "" {
		q = q.Where("username LIKE ?", "%"+keyword+"%")
	}
	err := q.Find(&res).Error
	return res, err
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		// 别人对该用户消息的点赞一并清掉
		sub := tx.Model(&model.Message{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("message_id IN (?)", sub).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&model.Follow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.User{}).Error
	})
}
