package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/warblerhq/warbler/internal/cache"
	"github.com/warblerhq/warbler/internal/repository"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
)

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) error
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	// IsFollowing A→B 是否存在关注边
	IsFollowing(ctx context.Context, userID, otherID string) (bool, error)
	// IsFollowedBy B→A 是否存在关注边
	IsFollowedBy(ctx context.Context, userID, otherID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
}

type relationshipService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	followers  *cache.FollowerCache
}

func NewRelationshipService(followRepo repository.FollowRepository, userRepo repository.UserRepository, followers *cache.FollowerCache) RelationshipService {
	return &relationshipService{followRepo: followRepo, userRepo: userRepo, followers: followers}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	if _, err := s.userRepo.GetByID(ctx, toUserID); err != nil {
		return ErrUserNotFound
	}
	if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	if s.followers != nil {
		s.followers.Invalidate(ctx, toUserID)
	}
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	if s.followers != nil {
		s.followers.Invalidate(ctx, toUserID)
	}
	return nil
}

func (s *relationshipService) IsFollowing(ctx context.Context, userID, otherID string) (bool, error) {
	return s.followRepo.Exists(ctx, userID, otherID)
}

func (s *relationshipService) IsFollowedBy(ctx context.Context, userID, otherID string) (bool, error) {
	return s.followRepo.Exists(ctx, otherID, userID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	offset, limit := pageToRange(page, pageSize)
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	offset, limit := pageToRange(page, pageSize)
	if s.followers != nil {
		if ids, ok := s.followers.Page(ctx, userID, offset, limit); ok {
			return cache.StripEmpty(ids), nil
		}
	}
	items, err := s.followRepo.ListFollowers(ctx, userID, 0, maxCascadeEdges)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	all := make([]string, len(items))
	for i, it := range items {
		all[i] = it.FollowerID
	}
	if s.followers != nil {
		s.followers.StoreIndex(ctx, userID, all)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *relationshipService) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return s.followRepo.CountFollowings(ctx, userID)
}

func (s *relationshipService) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return s.followRepo.CountFollowers(ctx, userID)
}
