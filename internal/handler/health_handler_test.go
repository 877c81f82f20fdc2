package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doctrack/internal/handler"
	"doctrack/mocks"
)

func TestHealthHandler_Readiness(t *testing.T) {
	store := new(mocks.MockDocumentStore)
	store.On("Ping", mock.Anything).Return(nil).Once()
	store.On("Ping", mock.Anything).Return(errors.New("down")).Once()
	h := handler.NewHealthHandler(store)

	c, w := newRequestContext(http.MethodGet, "/readyz", nil, nil)
	h.Readiness(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newRequestContext(http.MethodGet, "/readyz", nil, nil)
	h.Readiness(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "document store not reachable")
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := handler.NewHealthHandler(new(mocks.MockDocumentStore))

	c, w := newRequestContext(http.MethodGet, "/healthz", nil, nil)
	h.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
