package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/perkpass/perkpass/internal/config"
	dbpkg "github.com/perkpass/perkpass/internal/db"
	"github.com/perkpass/perkpass/internal/models"
	"github.com/perkpass/perkpass/internal/security"
	"github.com/perkpass/perkpass/internal/store"
)

var testJWTCfg = config.JWTConfig{Secret: "handler-test-secret", Expiry: config.Duration(time.Hour)}

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := dbpkg.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func newAuthHandler(conn *gorm.DB) *AuthHandler {
	return NewAuthHandler(store.NewMemberStore(conn), store.NewMerchantStore(conn), testJWTCfg)
}

func postJSON(t *testing.T, handler gin.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func TestMemberLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)

	hash, errHash := security.HashPassword("open-sesame")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	member := models.Member{Email: "jo@example.com", Name: "Jo", Password: hash, IsActive: true}
	if errCreate := conn.Create(&member).Error; errCreate != nil {
		t.Fatalf("create member: %v", errCreate)
	}

	h := newAuthHandler(conn)

	w := postJSON(t, h.MemberLogin, "/api/member/login", `{"email":"jo@example.com","password":"open-sesame"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	claims, errParse := security.ParseMemberToken(testJWTCfg.Secret, resp.Token)
	if errParse != nil {
		t.Fatalf("parse issued token: %v", errParse)
	}
	if claims.MemberID != member.ID || claims.Email != member.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	w = postJSON(t, h.MemberLogin, "/api/member/login", `{"email":"jo@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", w.Code)
	}
	w = postJSON(t, h.MemberLogin, "/api/member/login", `{"email":"nobody@example.com","password":"open-sesame"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown member: expected 401, got %d", w.Code)
	}
}

func TestMemberLoginDisabledMember(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)

	hash, _ := security.HashPassword("open-sesame")
	member := models.Member{Email: "off@example.com", Name: "Off", Password: hash, IsActive: false}
	if errCreate := conn.Create(&member).Error; errCreate != nil {
		t.Fatalf("create member: %v", errCreate)
	}

	w := postJSON(t, newAuthHandler(conn).MemberLogin, "/api/member/login", `{"email":"off@example.com","password":"open-sesame"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestTerminalLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)

	hash, _ := security.HashPassword("till-42")
	merchant := models.Merchant{Code: "store-042", Name: "Corner Store", Password: hash, DiscountPercent: 15, IsActive: true}
	if errCreate := conn.Create(&merchant).Error; errCreate != nil {
		t.Fatalf("create merchant: %v", errCreate)
	}

	h := newAuthHandler(conn)

	w := postJSON(t, h.TerminalLogin, "/api/terminal/login", `{"code":"store-042","password":"till-42"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	claims, errParse := security.ParseTerminalToken(testJWTCfg.Secret, resp.Token)
	if errParse != nil {
		t.Fatalf("parse issued token: %v", errParse)
	}
	if claims.MerchantID != merchant.ID || claims.Code != merchant.Code {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	w = postJSON(t, h.TerminalLogin, "/api/terminal/login", `{"code":"store-042","password":"nope"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", w.Code)
	}
}
