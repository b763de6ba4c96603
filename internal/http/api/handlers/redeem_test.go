package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/perkpass/perkpass/internal/models"
)

func terminalRequest(t *testing.T, handler gin.HandlerFunc, merchantID uint64, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("merchantID", merchantID)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/redeem", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func TestRedeemEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)
	svc := newTestService(t, conn)
	memberID := seedTierMember(t, conn, "black")
	merchant := models.Merchant{Code: "store-001", Name: "Store", Password: "unused", DiscountPercent: 20, IsActive: true}
	if errCreate := conn.Create(&merchant).Error; errCreate != nil {
		t.Fatalf("create merchant: %v", errCreate)
	}

	view, errCard := svc.CreateCard(context.Background(), memberID)
	if errCard != nil {
		t.Fatalf("create card: %v", errCard)
	}

	h := NewRedeemHandler(svc)

	w := terminalRequest(t, h.Redeem, merchant.ID, `{"token":"`+view.CurrentToken+`","amount":50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Receipt struct {
			CardNumber     string  `json:"card_number"`
			Tier           string  `json:"tier"`
			DiscountAmount float64 `json:"discount_amount"`
			FinalAmount    float64 `json:"final_amount"`
		} `json:"receipt"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Receipt.CardNumber != view.CardNumber {
		t.Fatalf("receipt card %q, want %q", resp.Receipt.CardNumber, view.CardNumber)
	}
	if resp.Receipt.Tier != "black" {
		t.Fatalf("receipt tier %q, want black", resp.Receipt.Tier)
	}
	if resp.Receipt.DiscountAmount != 10 || resp.Receipt.FinalAmount != 40 {
		t.Fatalf("receipt amounts: discount %v final %v", resp.Receipt.DiscountAmount, resp.Receipt.FinalAmount)
	}

	// Scanning the same code again is a replay.
	w = terminalRequest(t, h.Redeem, merchant.ID, `{"token":"`+view.CurrentToken+`","amount":50}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("replay: expected 409, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRedeemEndpointBadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)
	svc := newTestService(t, conn)
	merchant := models.Merchant{Code: "store-002", Name: "Store", Password: "unused", DiscountPercent: 20, IsActive: true}
	if errCreate := conn.Create(&merchant).Error; errCreate != nil {
		t.Fatalf("create merchant: %v", errCreate)
	}
	h := NewRedeemHandler(svc)

	w := terminalRequest(t, h.Redeem, merchant.ID, `{"token":"","amount":10}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty token: expected 400, got %d", w.Code)
	}
	w = terminalRequest(t, h.Redeem, merchant.ID, `{"token":"12345678","amount":-1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative amount: expected 400, got %d", w.Code)
	}
	w = terminalRequest(t, h.Redeem, merchant.ID, `{"token":"00000000","amount":10}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown token: expected 404, got %d", w.Code)
	}
}
