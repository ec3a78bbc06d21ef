package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/warblerhq/warbler/internal/model"
	"github.com/warblerhq/warbler/internal/repository"
)

var (
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrMessageTooLong = fmt.Errorf("message text exceeds %d characters", model.MaxMessageLen)
	ErrMessageGone    = errors.New("message not found")
	ErrLikeOwnMessage = errors.New("cannot like own message")
)

// timelineLimit 首页时间线最多取最近 100 条
const timelineLimit = 100

type MessageService interface {
	Post(ctx context.Context, userID, text string) (*model.Message, error)
	Get(ctx context.Context, id string) (*model.Message, error)
	// Delete 仅做存储层删除；归属校验由上层授权门完成
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Message, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	// Timeline 自己 + 关注对象的消息，按时间倒序
	Timeline(ctx context.Context, userID string) ([]*model.Message, error)
	Like(ctx context.Context, userID, messageID string) error
	Unlike(ctx context.Context, userID, messageID string) error
	HasLiked(ctx context.Context, userID, messageID string) (bool, error)
	ListLiked(ctx context.Context, userID string, page, pageSize int) ([]*model.Message, error)
	CountLikes(ctx context.Context, messageID string) (int64, error)
}

type messageService struct {
	msgRepo    repository.MessageRepository
	likeRepo   repository.LikeRepository
	followRepo repository.FollowRepository
}

func NewMessageService(msgRepo repository.MessageRepository, likeRepo repository.LikeRepository, followRepo repository.FollowRepository) MessageService {
	return &messageService{msgRepo: msgRepo, likeRepo: likeRepo, followRepo: followRepo}
}

func (s *messageService) Post(ctx context.Context, userID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(text)) > model.MaxMessageLen {
		return nil, ErrMessageTooLong
	}
	m, err := s.msgRepo.Create(ctx, userID, text)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

func (s *messageService) Get(ctx context.Context, id string) (*model.Message, error) {
	m, err := s.msgRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageGone
		}
		return nil, err
	}
	return m, nil
}

func (s *messageService) Delete(ctx context.Context, id string) error {
	return s.msgRepo.Delete(ctx, id)
}

func (s *messageService) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Message, error) {
	offset, limit := pageToRange(page, pageSize)
	return s.msgRepo.ListByUser(ctx, userID, offset, limit)
}

func (s *messageService) CountByUser(ctx context.Context, userID string) (int64, error) {
	return s.msgRepo.CountByUser(ctx, userID)
}

func (s *messageService) Timeline(ctx context.Context, userID string) ([]*model.Message, error) {
	followed, err := s.followRepo.ListFollowings(ctx, userID, 0, maxCascadeEdges)
	if err != nil {
		return nil, fmt.Errorf("list followings: %w", err)
	}
	ids := make([]string, 0, len(followed)+1)
	ids = append(ids, userID)
	for _, f := range followed {
		ids = append(ids, f.FolloweeID)
	}
	return s.msgRepo.ListByUsers(ctx, ids, timelineLimit)
}

func (s *messageService) Like(ctx context.Context, userID, messageID string) error {
	m, err := s.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.UserID == userID {
		return ErrLikeOwnMessage
	}
	return s.likeRepo.Create(ctx, userID, messageID)
}

func (s *messageService) Unlike(ctx context.Context, userID, messageID string) error {
	return s.likeRepo.Delete(ctx, userID, messageID)
}

func (s *messageService) HasLiked(ctx context.Context, userID, messageID string) (bool, error) {
	return s.likeRepo.Exists(ctx, userID, messageID)
}

func (s *messageService) ListLiked(ctx context.Context, userID string, page, pageSize int) ([]*model.Message, error) {
	offset, limit := pageToRange(page, pageSize)
	likes, err := s.likeRepo.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(likes))
	for i, l := range likes {
		ids[i] = l.MessageID
	}
	return s.msgRepo.ListByIDs(ctx, ids)
}

func (s *messageService) CountLikes(ctx context.Context, messageID string) (int64, error) {
	return s.likeRepo.CountByMessage(ctx, messageID)
}
