package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doctrack/internal/domain"
	"doctrack/internal/handler"
	"doctrack/internal/port"
	"doctrack/internal/service"
	"doctrack/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newDocumentHandler() (*handler.DocumentHandler, *mocks.MockDocumentService) {
	mockSvc := new(mocks.MockDocumentService)
	return handler.NewDocumentHandler(mockSvc), mockSvc
}

func newRequestContext(method, path string, body []byte, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(method, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Create ---

func TestDocumentHandler_Create_Success(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := domain.NewDocument("product")

	mockSvc.On("Create", mock.Anything, "product", mock.MatchedBy(func(u *domain.Update) bool {
		keys := u.Keys()
		return len(keys) == 2 && keys[0] == "stock" && keys[1] == "price"
	})).Return(doc, nil)

	c, w := newRequestContext(http.MethodPost, "/api/v1/types/product/documents",
		[]byte(`{"stock": 3, "price": 9.5}`), gin.Params{{Key: "type", Value: "product"}})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Create_NotAnObject(t *testing.T) {
	h, mockSvc := newDocumentHandler()

	c, w := newRequestContext(http.MethodPost, "/api/v1/types/product/documents",
		[]byte(`[1, 2]`), gin.Params{{Key: "type", Value: "product"}})

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeResponse(t, w).Error.Code)
	mockSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_Create_UnknownType(t *testing.T) {
	h, mockSvc := newDocumentHandler()

	mockSvc.On("Create", mock.Anything, "invoice", mock.Anything).Return(nil, domain.ErrUnknownDocumentType)

	c, w := newRequestContext(http.MethodPost, "/api/v1/types/invoice/documents",
		[]byte(`{"a": 1}`), gin.Params{{Key: "type", Value: "invoice"}})

	h.Create(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_DOCUMENT_TYPE", decodeResponse(t, w).Error.Code)
}

// --- GetByID ---

func TestDocumentHandler_GetByID_InvalidID(t *testing.T) {
	h, _ := newDocumentHandler()

	c, w := newRequestContext(http.MethodGet, "/api/v1/types/product/documents/abc", nil,
		gin.Params{{Key: "type", Value: "product"}, {Key: "id", Value: "abc"}})

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decodeResponse(t, w).Error.Code)
}

func TestDocumentHandler_GetByID_NotFound(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()

	mockSvc.On("Get", mock.Anything, "product", id).Return(nil, domain.ErrDocumentNotFound)

	c, w := newRequestContext(http.MethodGet, "/api/v1/types/product/documents/"+id.String(), nil,
		gin.Params{{Key: "type", Value: "product"}, {Key: "id", Value: id.String()}})

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", decodeResponse(t, w).Error.Code)
}

// --- Patch ---

func TestDocumentHandler_Patch_Success(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	now := time.Now().UTC()
	doc := domain.LoadDocument(uuid.New(), "product", 2, now, now, map[string]any{"price": 4.0})

	mockSvc.On("Patch", mock.Anything, "product", doc.ID, mock.AnythingOfType("*domain.Update")).Return(doc, nil)

	c, w := newRequestContext(http.MethodPatch, "/", []byte(`{"price": 4}`),
		gin.Params{{Key: "type", Value: "product"}, {Key: "id", Value: doc.ID.String()}})

	h.Patch(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, doc.ID.String(), body.Data["_id"])
	assert.Equal(t, 4.0, body.Data["price"])
}

// --- History ---

func TestDocumentHandler_History(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	mockSvc.On("History", mock.Anything, "product", id).
		Return(domain.HistoryList{{Field: "price", ChangedTo: 12.5, At: at}}, nil)

	c, w := newRequestContext(http.MethodGet, "/", nil,
		gin.Params{{Key: "type", Value: "product"}, {Key: "id", Value: id.String()}})

	h.History(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "price", body.Data[0]["field"])
	assert.Equal(t, 12.5, body.Data[0]["changedTo"])
	assert.Equal(t, "2024-01-15T10:30:00Z", body.Data[0]["at"])
}

// --- Delete ---

func TestDocumentHandler_Delete_InternalError(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()

	mockSvc.On("Delete", mock.Anything, "product", id).Return(errors.New("connection reset"))

	c, w := newRequestContext(http.MethodDelete, "/", nil,
		gin.Params{{Key: "type", Value: "product"}, {Key: "id", Value: id.String()}})

	h.Delete(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeResponse(t, w).Error.Code)
}

// --- Query updates ---

func TestDocumentHandler_UpdateOne_Success(t *testing.T) {
	h, mockSvc := newDocumentHandler()

	mockSvc.On("UpdateOne", mock.Anything, mock.MatchedBy(func(in *service.QueryUpdateInput) bool {
		v, _ := in.Update.Get("price")
		return in.DocType == "product" && in.Filter["sku"] == "A-1" && v == 12.5
	})).Return(port.UpdateResult{Matched: 1, Modified: 1}, nil)

	c, w := newRequestContext(http.MethodPost, "/", []byte(`{"filter": {"sku": "A-1"}, "update": {"price": 12.5}}`),
		gin.Params{{Key: "type", Value: "product"}})

	h.UpdateOne(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data port.UpdateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, port.UpdateResult{Matched: 1, Modified: 1}, body.Data)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_UpdateMany_MissingUpdate(t *testing.T) {
	h, mockSvc := newDocumentHandler()

	c, w := newRequestContext(http.MethodPost, "/", []byte(`{"filter": {}}`),
		gin.Params{{Key: "type", Value: "product"}})

	h.UpdateMany(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "UpdateMany", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Update_NilFilterDefaultsToEmpty(t *testing.T) {
	h, mockSvc := newDocumentHandler()

	mockSvc.On("Update", mock.Anything, mock.MatchedBy(func(in *service.QueryUpdateInput) bool {
		return in.Filter != nil && len(in.Filter) == 0
	})).Return(port.UpdateResult{}, nil)

	c, w := newRequestContext(http.MethodPost, "/", []byte(`{"update": {"price": 1}}`),
		gin.Params{{Key: "type", Value: "product"}})

	h.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_FindOneAndUpdate_EmptyUpdate(t *testing.T) {
	h, mockSvc := newDocumentHandler()

	mockSvc.On("FindOneAndUpdate", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyUpdate)

	c, w := newRequestContext(http.MethodPost, "/", []byte(`{"filter": {}, "update": {}}`),
		gin.Params{{Key: "type", Value: "product"}})

	h.FindOneAndUpdate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_UPDATE", decodeResponse(t, w).Error.Code)
}

// --- MapDomainError ---

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrVersionConflict, http.StatusConflict, "VERSION_CONFLICT"},
		{domain.ErrInvalidQuery, http.StatusBadRequest, "INVALID_QUERY"},
		{domain.ErrReservedField, http.StatusBadRequest, "RESERVED_FIELD"},
		{domain.ErrInvalidFieldName, http.StatusBadRequest, "INVALID_FIELD_NAME"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tc := range cases {
		status, code, _ := handler.MapDomainError(tc.err)
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, tc.code, code)
	}
}
