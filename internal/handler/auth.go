package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const tokenCookieName = "__tower_planner_token"

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 验证用户名和密码
	user, err := h.repository.GetUserByUsername(req.Username)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "用户名不存在或密码错误")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.errorResponse(w, r, "用户名不存在或密码错误")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	ss, expiration, err := h.issueToken(user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	http.SetCookie(w, h.tokenCookie(ss, expiration))

	h.successResponse(w, r, "登录成功", user)
}

// Logout 用一个已过期的同名 cookie 覆盖登录时下发的 cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.tokenCookie("", time.Now().Add(-time.Hour)))

	h.successResponse(w, r, "登出成功", nil)
}

// issueToken 为用户签发 JWT，subject 为用户 ID，停用的账号仍可登录但不能修改数据
func (h *Handler) issueToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiration := now.Add(time.Duration(h.config.JWT.Expiration) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	})

	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return ss, expiration, nil
}

// tokenCookie 返回保存 JWT 的 http-only cookie，生产环境下只允许通过 HTTPS 同站发送
func (h *Handler) tokenCookie(value string, expiration time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    value,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	return cookie
}
