// Package jwt 提供 JWT Token 的生成和验证功能
// Token 中携带调用者身份：用户 ID、姓名、角色
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 定义错误类型
var (
	ErrInvalidToken = errors.New("invalid token")     // Token 无效
	ErrExpiredToken = errors.New("token has expired") // Token 已过期
)

const (
	issuer         = "lab-reservation"
	subjectAccess  = "access"
	subjectRefresh = "refresh"
)

// UserClaims 用户 JWT 的声明（Payload）
// jti 为会话 ID，同一次登录签发的 Access Token 和 Refresh Token 共用
type UserClaims struct {
	UserID int64  `json:"uid"`   // 用户 ID
	Name   string `json:"uname"` // 用户姓名
	Role   string `json:"role"`  // 角色文本，如 "管理员"
	jwt.RegisteredClaims
}

// SessionID 返回 Token 所属的会话 ID
func (c *UserClaims) SessionID() string {
	return c.ID
}

// TokenPair 一次登录签发的一组 Token
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// JWTService 提供 JWT 相关操作
type JWTService struct {
	secret        []byte        // JWT 签名密钥
	accessExpire  time.Duration // Access Token 过期时间
	refreshExpire time.Duration // Refresh Token 过期时间
}

// NewJWTService 创建 JWTService 实例
// 参数:
//   - secret: JWT 签名密钥，至少 32 个字符
//   - accessExpire: Access Token 过期时间
//   - refreshExpire: Refresh Token 过期时间
//
// 返回:
//   - *JWTService: JWT 服务实例
func NewJWTService(secret string, accessExpire, refreshExpire time.Duration) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpire:  accessExpire,
		refreshExpire: refreshExpire,
	}
}

// GenerateAccessToken 生成 Access Token
// 参数:
//   - userID: 用户 ID
//   - name: 用户姓名
//   - role: 角色文本
//
// 返回:
//   - string: JWT Token 字符串
//   - error: 生成错误
func (s *JWTService) GenerateAccessToken(userID int64, name, role string) (string, error) {
	return s.sign(uuid.NewString(), userID, name, role, subjectAccess, s.accessExpire)
}

// GenerateRefreshToken 生成 Refresh Token
// 用于刷新 Access Token
func (s *JWTService) GenerateRefreshToken(userID int64, name, role string) (string, error) {
	return s.sign(uuid.NewString(), userID, name, role, subjectRefresh, s.refreshExpire)
}

// GenerateTokenPair 为一次登录生成属于同一会话的 Access Token 和 Refresh Token
// 登出时按会话 ID 吊销，两者同时失效
func (s *JWTService) GenerateTokenPair(userID int64, name, role string) (*TokenPair, error) {
	sessionID := uuid.NewString()
	access, err := s.sign(sessionID, userID, name, role, subjectAccess, s.accessExpire)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(sessionID, userID, name, role, subjectRefresh, s.refreshExpire)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, SessionID: sessionID}, nil
}

// RenewAccessToken 为已有会话签发新的 Access Token
func (s *JWTService) RenewAccessToken(sessionID string, userID int64, name, role string) (string, error) {
	return s.sign(sessionID, userID, name, role, subjectAccess, s.accessExpire)
}

func (s *JWTService) sign(sessionID string, userID int64, name, role, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subject,
		},
	}

	// 使用 HMAC SHA256 算法签名
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken 验证 Access Token
// 参数:
//   - tokenString: JWT Token 字符串
//
// 返回:
//   - *UserClaims: Token 中的声明信息
//   - error: 验证错误（无效或已过期）
func (s *JWTService) ValidateToken(tokenString string) (*UserClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subjectAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefreshToken 验证 Refresh Token
func (s *JWTService) ValidateRefreshToken(tokenString string) (*UserClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subjectRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 确保使用的是我们期望的算法（HMAC）
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetAccessExpire 获取 Access Token 过期时间
func (s *JWTService) GetAccessExpire() time.Duration {
	return s.accessExpire
}

// GetRefreshExpire 获取 Refresh Token 过期时间
func (s *JWTService) GetRefreshExpire() time.Duration {
	return s.refreshExpire
}
