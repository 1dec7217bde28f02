package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/mocks"
	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
)

func createTestHandler(mockService *mocks.MockUserServiceIface) *GetHandler {
	return NewGet(mockService, zap.NewNop())
}

func sampleUsers(n int) []models.User {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, models.User{ID: "id", Username: "alice", Email: "alice@example.com", Phone: "0123456789"})
	}
	return users
}

func TestUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockUserServiceIface(ctrl)
	handler := createTestHandler(mockService)

	tests := []struct {
		name         string
		query        string
		expectPage   int
		expectLimit  int
		mockReturn   models.Page
		mockErr      error
		expectedCode int
	}{
		{
			name:         "defaults",
			query:        "",
			expectPage:   1,
			expectLimit:  20,
			mockReturn:   models.NewPage(sampleUsers(20), 1, 20, 45),
			expectedCode: http.StatusOK,
		},
		{
			name:         "last page",
			query:        "?page=3&limit=20",
			expectPage:   3,
			expectLimit:  20,
			mockReturn:   models.NewPage(sampleUsers(5), 3, 20, 45),
			expectedCode: http.StatusOK,
		},
		{
			name:         "storage down",
			query:        "?page=1",
			expectPage:   1,
			expectLimit:  20,
			mockErr:      storage.ErrUnavailable,
			expectedCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService.EXPECT().List(gomock.Any(), tt.expectPage, tt.expectLimit).Return(tt.mockReturn, tt.mockErr)

			req := httptest.NewRequest(http.MethodGet, "/users"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.Users(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.mockErr != nil {
				return
			}

			assert.Equal(t, "3", rec.Header().Get("Total-Pages"))
			assert.Equal(t, "45", rec.Header().Get("X-Total-Count"))

			var users []models.User
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&users))
			assert.Len(t, users, len(tt.mockReturn.Users))
		})
	}
}

func TestUsers_BadPagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := createTestHandler(mocks.NewMockUserServiceIface(ctrl))

	for _, q := range []string{"?page=0", "?page=abc", "?limit=-5", "?limit=1.5"} {
		req := httptest.NewRequest(http.MethodGet, "/users"+q, nil)
		rec := httptest.NewRecorder()

		handler.Users(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, q)

		var body models.MessageResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Contains(t, body.Message, "positive integer")
	}
}

func TestUsers_EmptyIsArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockUserServiceIface(ctrl)
	mockService.EXPECT().List(gomock.Any(), 1, 20).Return(models.NewPage(nil, 1, 20, 0), nil)

	rec := httptest.NewRecorder()
	createTestHandler(mockService).Users(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("Total-Pages"))
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSearch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockUserServiceIface(ctrl)
	handler := createTestHandler(mockService)

	filter := models.SearchFilter{Username: "ali", Email: "example", Phone: "555"}
	mockService.EXPECT().Search(gomock.Any(), filter, 2, 10).
		Return(models.NewPage(sampleUsers(3), 2, 10, 13), nil)

	req := httptest.NewRequest(http.MethodGet, "/search?name=ali&email=example&phone=555&page=2&limit=10", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body models.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(13), body.Total)
	assert.Equal(t, 2, body.TotalPages)
	assert.Equal(t, 2, body.Page)
	assert.Len(t, body.Users, 3)
}

func TestSearch_InvalidQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockUserServiceIface(ctrl)
	mockService.EXPECT().Search(gomock.Any(), gomock.Any(), 1, 20).Return(models.Page{}, service.ErrInvalidQuery)

	rec := httptest.NewRecorder()
	createTestHandler(mockService).Search(rec, httptest.NewRequest(http.MethodGet, "/search?name=x", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockUserServiceIface(ctrl)
	handler := createTestHandler(mockService)

	mockService.EXPECT().PingContext(gomock.Any()).Return(nil)
	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mockService.EXPECT().PingContext(gomock.Any()).Return(errors.New("down"))
	rec = httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockUserServiceIface(ctrl)
	mockService.EXPECT().Stats(gomock.Any()).Return(models.Stats{Users: 42}, nil)

	rec := httptest.NewRecorder()
	createTestHandler(mockService).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":42}`, rec.Body.String())
}
