package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{domain.Invalid("status", "bad"), http.StatusBadRequest, CodeValidation},
		{fmt.Errorf("order x: %w", domain.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{&domain.PersistenceError{Op: "get order", Err: errors.New("conn refused")}, http.StatusServiceUnavailable, CodeUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		code, kind := Status(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.kind, kind, tc.err.Error())
	}
}

func TestFail(t *testing.T) {
	r := NewRouter(logger.Nop())
	r.GET("/x", func(c *gin.Context) { Fail(c, domain.Invalid("minutes", "must be between 1 and 120")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid minutes: must be between 1 and 120","code":"validation_error"}`, w.Body.String())
}

func TestLatestKeepsNewest(t *testing.T) {
	l := NewLatest[int]()
	l.Put(1)
	l.Put(2)
	l.Put(3)
	assert.Equal(t, 3, <-l.C())
	select {
	case v := <-l.C():
		t.Fatalf("unexpected %d", v)
	default:
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter(logger.Nop()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
