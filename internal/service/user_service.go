package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/warblerhq/warbler/internal/cache"
	"github.com/warblerhq/warbler/internal/model"
	"github.com/warblerhq/warbler/internal/repository"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// dummyHash 用户不存在时也跑一次 bcrypt，避免时间侧信道暴露用户名是否存在
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// ProfileUpdate carries the editable profile fields. Nil means "leave as is".
type ProfileUpdate struct {
	Username       *string
	Email          *string
	ImageURL       *string
	HeaderImageURL *string
	Bio            *string
	Location       *string
}

type UserService interface {
	// Signup 注册新用户，密码以 bcrypt 散列落库
	Signup(ctx context.Context, username, email, password, imageURL string) (*model.User, error)
	// Authenticate 校验用户名+密码；用户不存在与密码错误不可区分
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	Search(ctx context.Context, keyword string, page, pageSize int) ([]*model.User, error)
	// UpdateProfile 修改资料前先用密码重新认证
	UpdateProfile(ctx context.Context, userID, password string, upd ProfileUpdate) (*model.User, error)
	// Delete 级联删除：消息、点赞、双向关注边一并清除
	Delete(ctx context.Context, userID string) error
}

type userService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	followers  *cache.FollowerCache
	bcryptCost int
}

func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository, followers *cache.FollowerCache, bcryptCost int) UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{userRepo: userRepo, followRepo: followRepo, followers: followers, bcryptCost: bcryptCost}
}

func (s *userService) Signup(ctx context.Context, username, email, password, imageURL string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if imageURL == "" {
		imageURL = model.DefaultImageURL
	}
	u := &model.User{
		ID:             uuid.New().String(),
		Username:       username,
		Email:          email,
		Password:       string(hash),
		ImageURL:       imageURL,
		HeaderImageURL: model.DefaultHeaderImageURL,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.whichTaken(ctx, username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// whichTaken resolves a unique-key conflict to the colliding field.
// Concurrent racers both land here; exactly one row exists by now.
func (s *userService) whichTaken(ctx context.Context, username string) error {
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	return s.userRepo.GetByIDs(ctx, ids)
}

func (s *userService) Search(ctx context.Context, keyword string, page, pageSize int) ([]*model.User, error) {
	offset, limit := pageToRange(page, pageSize)
	return s.userRepo.Search(ctx, keyword, offset, limit)
}

func (s *userService) UpdateProfile(ctx context.Context, userID, password string, upd ProfileUpdate) (*model.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if upd.Username != nil {
		u.Username = strings.TrimSpace(*upd.Username)
	}
	if upd.Email != nil {
		u.Email = strings.TrimSpace(*upd.Email)
	}
	if upd.ImageURL != nil {
		u.ImageURL = *upd.ImageURL
	}
	if upd.HeaderImageURL != nil {
		u.HeaderImageURL = *upd.HeaderImageURL
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Location != nil {
		u.Location = *upd.Location
	}

	if err := s.userRepo.Update(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.whichTaken(ctx, u.Username)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	// 被删用户出现在其关注对象的粉丝索引里，先记下再失效
	followed, err := s.followRepo.ListFollowings(ctx, userID, 0, maxCascadeEdges)
	if err != nil {
		return fmt.Errorf("list followings: %w", err)
	}
	if err := s.userRepo.DeleteCascade(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if s.followers != nil {
		s.followers.Invalidate(ctx, userID)
		for _, f := range followed {
			s.followers.Invalidate(ctx, f.FolloweeID)
		}
	}
	return nil
}

const maxCascadeEdges = 100000

func pageToRange(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return (page - 1) * pageSize, pageSize
}
