package handler

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/legal-directory-api/internal/application/auth"
	"github.com/legal-directory-api/internal/application/otp"
	"github.com/legal-directory-api/internal/application/session"
	"github.com/legal-directory-api/internal/domain"
	jwtinfra "github.com/legal-directory-api/internal/infrastructure/jwt"
	"github.com/legal-directory-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) SendOTP(ctx context.Context, req auth.SendOTPRequest, c auth.Client) (string, error) {
	args := m.Called(ctx, req, c)
	return args.String(0), args.Error(1)
}
func (m *mockAuthSvc) VerifyOTP(ctx context.Context, req auth.VerifyOTPRequest, c auth.Client) (*auth.Tokens, error) {
	args := m.Called(ctx, req, c)
	if t, _ := args.Get(0).(*auth.Tokens); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) Refresh(ctx context.Context, token string) (*auth.Tokens, error) {
	args := m.Called(ctx, token)
	if t, _ := args.Get(0).(*auth.Tokens); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockAuthSvc) LogoutAll(ctx context.Context, mobile string) error {
	return m.Called(ctx, mobile).Error(0)
}

// --- helpers ---

func newOTPHandler(svc auth.Service) *OTPHandler {
	return NewOTPHandler(svc, CookieConfig{MaxAge: 30 * 24 * time.Hour}, zap.NewNop())
}

func post(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "1.2.3.4:41000"
	req.Header.Set("User-Agent", "test-agent")
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

var testClient = auth.Client{IP: "1.2.3.4", UserAgent: "test-agent"}

// --- send ---

func TestSend_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SendOTP", mock.Anything, auth.SendOTPRequest{MobileNumber: "9419114719"}, testClient).Return("919419114719", nil)

	rr := httptest.NewRecorder()
	newOTPHandler(svc).Send(rr, post(`{"mobile_number":"9419114719"}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "OTP sent successfully to 919419114719", body["message"])
	assert.Equal(t, "919419114719", body["mobile_number"])
	assert.NotContains(t, body, "otp")
}

func TestSend_Validation(t *testing.T) {
	cases := map[string]string{
		"missing":   `{}`,
		"empty":     ``,
		"short":     `{"mobile_number":"12345"}`,
		"letters":   `{"mobile_number":"94191147ab"}`,
		"bad json":  `{"mobile_number":`,
		"wrong cc":  `{"mobile_number":"929419114719"}`,
		"not a str": `{"mobile_number":9419114719}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &mockAuthSvc{}
			rr := httptest.NewRecorder()
			newOTPHandler(svc).Send(rr, post(in))

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			body := decodeBody(t, rr)
			assert.Equal(t, "Validation failed", body["message"])
			assert.NotEmpty(t, body["errors"])
			svc.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSend_UpstreamFailure(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SendOTP", mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("deliver otp: %w: %w", domain.ErrUpstream, errors.New("Error 405 : bad sender")))

	rr := httptest.NewRecorder()
	newOTPHandler(svc).Send(rr, post(`{"mobile_number":"9419114719"}`))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Failed to send OTP", body["message"])
	assert.NotContains(t, rr.Body.String(), "405")
}

// --- verify ---

func TestVerify_OK_SetsCookie(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, auth.VerifyOTPRequest{MobileNumber: "9419114719", OTP: "123456"}, testClient).
		Return(&auth.Tokens{AccessToken: "a.b.c", ExpiresIn: 3600, RefreshToken: "refresh-plain"}, nil)

	rr := httptest.NewRecorder()
	newOTPHandler(svc).Verify(rr, post(`{"mobile_number":"9419114719","otp":"123456"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "OTP verified successfully", body["message"])
	assert.Equal(t, "a.b.c", body["access_token"])
	assert.Equal(t, "Bearer", body["token_type"])
	assert.EqualValues(t, 3600, body["expires_in"])
	assert.NotContains(t, rr.Body.String(), "refresh-plain")

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, RefreshCookie, c.Name)
	assert.Equal(t, "refresh-plain", c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 30*24*3600, c.MaxAge)
}

func TestVerify_CookieSecureBehindTLS(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything).
		Return(&auth.Tokens{AccessToken: "a.b.c", ExpiresIn: 3600, RefreshToken: "r"}, nil)

	req := post(`{"mobile_number":"9419114719","otp":"123456"}`)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	newOTPHandler(svc).Verify(rr, req)
	assert.True(t, rr.Result().Cookies()[0].Secure)

	req = post(`{"mobile_number":"9419114719","otp":"123456"}`)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	newOTPHandler(svc).Verify(rr, req)
	assert.True(t, rr.Result().Cookies()[0].Secure)
}

func TestVerify_InvalidOTP(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything).Return(nil, otp.ErrInvalidOTP)

	rr := httptest.NewRecorder()
	newOTPHandler(svc).Verify(rr, post(`{"mobile_number":"9419114719","otp":"000000"}`))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid or expired OTP", decodeBody(t, rr)["message"])
	assert.Empty(t, rr.Result().Cookies())
}

func TestVerify_OTPFormat(t *testing.T) {
	for _, code := range []string{"12345", "1234567", "12a456", ""} {
		rr := httptest.NewRecorder()
		newOTPHandler(&mockAuthSvc{}).Verify(rr, post(`{"mobile_number":"9419114719","otp":"`+code+`"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, code)
		errs, _ := decodeBody(t, rr)["errors"].(map[string]interface{})
		assert.Contains(t, errs, "otp", code)
	}
}

// --- refresh / logout ---

func TestRefresh_NoCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	newOTPHandler(&mockAuthSvc{}).Refresh(rr, post(``))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Refresh token not found", decodeBody(t, rr)["message"])
}

func TestRefresh_InvalidCookie(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Refresh", mock.Anything, "stale").Return(nil, session.ErrInvalidRefresh)

	req := post(``)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "stale"})
	rr := httptest.NewRecorder()
	newOTPHandler(svc).Refresh(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid or expired refresh token", decodeBody(t, rr)["message"])
}

func TestRefresh_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Refresh", mock.Anything, "good").Return(&auth.Tokens{AccessToken: "x.y.z", ExpiresIn: 3600}, nil)

	req := post(``)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "good"})
	rr := httptest.NewRecorder()
	newOTPHandler(svc).Refresh(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "x.y.z", body["access_token"])
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Empty(t, rr.Result().Cookies())
}

func TestLogout_ClearsCookie(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Logout", mock.Anything, "tok").Return(nil)

	req := post(``)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "tok"})
	rr := httptest.NewRecorder()
	newOTPHandler(svc).Logout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	svc.AssertExpectations(t)
}

func TestLogout_StoreFailure(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Logout", mock.Anything, "tok").Return(errors.New("dynamo timeout"))

	req := post(``)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "tok"})
	rr := httptest.NewRecorder()
	newOTPHandler(svc).Logout(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rr)["message"])
	assert.NotContains(t, rr.Body.String(), "dynamo")
}

// --- account ---

func TestMe(t *testing.T) {
	h := NewSessionHandler(&mockAuthSvc{}, zap.NewNop())
	p := &jwtinfra.Payload{Subject: "919419114719", ExpiresAt: 1_765_003_600, Kind: jwtinfra.KindAccess}
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(middleware.WithPayload(context.Background(), p))
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "919419114719", body["mobile_number"])
	assert.EqualValues(t, 1_765_003_600, body["expires_at"])
}

func TestRevokeAll(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("LogoutAll", mock.Anything, "919419114719").Return(nil)
	h := NewSessionHandler(svc, zap.NewNop())

	p := &jwtinfra.Payload{Subject: "919419114719", Kind: jwtinfra.KindAccess}
	req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(middleware.WithPayload(context.Background(), p))
	rr := httptest.NewRecorder()
	h.RevokeAll(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestMe_WithoutGate(t *testing.T) {
	rr := httptest.NewRecorder()
	NewSessionHandler(&mockAuthSvc{}, zap.NewNop()).Me(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- health ---

func TestHealthPing(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/health-check/{action}", NewHealthHandler().Ping)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/other", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
