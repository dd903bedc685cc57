package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/util"
)

// AuthService 认证服务
// 处理登录、登出和 Token 刷新
type AuthService struct {
	store      *repository.Store // 仓库集合
	cache      *cache.RedisCache // Redis 缓存
	jwtService *jwt.JWTService   // JWT 服务
	now        func() time.Time
	log        zerolog.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	store *repository.Store,
	cache *cache.RedisCache,
	jwtService *jwt.JWTService,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		store:      store,
		cache:      cache,
		jwtService: jwtService,
		now:        time.Now,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Code     string `json:"code" binding:"required"`     // 学号/工号
	Password string `json:"password" binding:"required"` // 密码
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`  // 访问令牌
	RefreshToken string      `json:"refresh_token"` // 刷新令牌
	ExpiresIn    int64       `json:"expires_in"`    // 过期时间（秒）
	User         *model.User `json:"user"`          // 用户信息
}

// Login 用户登录
// 参数:
//   - ctx: 上下文
//   - req: 登录请求
//   - ip: 客户端地址，写入审计记录
//
// 返回:
//   - *LoginResponse: 登录成功返回 Token 和用户信息
//   - error: 账号或密码错误返回 ErrPasswordWrong
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, ip string) (*LoginResponse, error) {
	// 1. 根据登录账号查找用户
	user, err := s.store.Users.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, persistence(err)
	}

	// 2. 验证密码，账号不存在与密码错误返回同一个错误
	if user == nil || !util.CheckPassword(req.Password, user.PasswordHash) {
		s.log.Warn().Str("code", req.Code).Str("ip", ip).Msg("login failed")
		return nil, ErrPasswordWrong
	}

	// 3. 生成同一会话的一组 Token，身份信息随 Token 下发
	tokens, err := s.jwtService.GenerateTokenPair(user.ID, user.Name, user.Role.String())
	if err != nil {
		return nil, err
	}

	// 4. 记录登录
	caller := Caller{UserID: user.ID, Name: user.Name, Role: user.Role, IP: ip}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		return appendAudit(ctx, tx, caller, model.ActionLogin, model.TableUsers, s.now(),
			"用户 %s(%s) 登录", user.Name, user.Code)
	})
	if err != nil {
		return nil, persistence(err)
	}

	return &LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    int64(s.jwtService.GetAccessExpire().Seconds()),
		User:         user,
	}, nil
}

// SessionToken 登出时提交的当前 Token 信息
type SessionToken struct {
	TokenHash string    // Access Token 的哈希值
	SessionID string    // 会话 ID，为空时只吊销当前 Token
	ExpireAt  time.Time // Access Token 的过期时间
}

// Logout 用户登出
// 先吊销 Token 和所属会话，成功后再写登出审计记录
// 会话吊销后，同一次登录得到的 Refresh Token 也不能再刷新
// 参数:
//   - ctx: 上下文
//   - caller: 调用者
//   - token: 当前 Token 信息
//
// 返回:
//   - error: 操作错误
func (s *AuthService) Logout(ctx context.Context, caller Caller, token SessionToken) error {
	// TTL 设为 Token 的剩余有效期
	if err := s.cache.BlacklistToken(ctx, token.TokenHash, token.ExpireAt); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	if token.SessionID != "" {
		// 会话中最晚过期的是 Refresh Token，从现在起算一个完整周期即可覆盖
		if err := s.cache.RevokeSession(ctx, token.SessionID, time.Now().Add(s.jwtService.GetRefreshExpire())); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return appendAudit(ctx, tx, caller, model.ActionLogout, model.TableUsers, s.now(),
			"用户 %s 登出", caller.Name)
	})
	if err != nil {
		// Token 已失效，登出本身已完成，审计失败只记录
		s.log.Error().Err(err).Int64("uid", caller.UserID).Msg("write logout audit failed")
	}
	return nil
}

// RefreshTokenResponse 刷新 Token 响应
type RefreshTokenResponse struct {
	AccessToken string `json:"access_token"` // 新的访问令牌
	ExpiresIn   int64  `json:"expires_in"`   // 过期时间（秒）
}

// RefreshToken 刷新 Access Token
// 角色以数据库中的当前值为准，管理员调整角色后刷新即可生效
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenResponse, error) {
	// 1. 验证 Refresh Token
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// 2. 会话已登出时拒绝刷新
	revoked, err := s.cache.IsSessionRevoked(ctx, claims.SessionID())
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	// 3. 检查用户是否仍然存在
	user, err := s.store.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, persistence(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// 4. 在原会话中签发新的 Access Token
	accessToken, err := s.jwtService.RenewAccessToken(claims.SessionID(), user.ID, user.Name, user.Role.String())
	if err != nil {
		return nil, err
	}

	return &RefreshTokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtService.GetAccessExpire().Seconds()),
	}, nil
}
