package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

func authRouter(t *testing.T, secret string, guards ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	r := gin.New()
	r.Use(NewAuthMiddleware(log, secret).RequireAuth())
	r.Use(guards...)
	r.GET("/whoami", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	const secret = "s3cret"
	r := authRouter(t, secret)
	userID := uuid.New()

	good, err := IssueToken(secret, userID, nil, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	rec := get(r, good)
	if rec.Code != http.StatusOK || rec.Body.String() != userID.String() {
		t.Fatalf("valid token: status=%d body=%q", rec.Code, rec.Body.String())
	}

	expired, _ := IssueToken(secret, userID, nil, -time.Minute)
	forged, _ := IssueToken("other", userID, nil, time.Minute)
	for name, token := range map[string]string{"missing": "", "expired": expired, "forged": forged, "garbage": "abc.def.ghi"} {
		if rec := get(r, token); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s token: want=%d got=%d", name, http.StatusUnauthorized, rec.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	const secret = "s3cret"
	r := authRouter(t, secret, RequireRole("radiologist"))

	tech, _ := IssueToken(secret, uuid.New(), []string{"technician"}, time.Minute)
	if rec := get(r, tech); rec.Code != http.StatusForbidden {
		t.Fatalf("technician: want=%d got=%d", http.StatusForbidden, rec.Code)
	}
	rad, _ := IssueToken(secret, uuid.New(), []string{"radiologist"}, time.Minute)
	if rec := get(r, rad); rec.Code != http.StatusOK {
		t.Fatalf("radiologist: want=%d got=%d", http.StatusOK, rec.Code)
	}
}
