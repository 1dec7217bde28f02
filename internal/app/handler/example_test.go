package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/app/handler"
	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/generator"
	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
	"github.com/atinyakov/go-user-directory/internal/worker"
)

func newExampleService() *service.UserService {
	logger := zap.NewNop()
	mem, _ := storage.CreateMemoryStorage()

	return service.NewUserService(
		mem,
		service.NewQueryService(mem, nil, logger),
		worker.NewPopulateWorker(mem, generator.DefaultConfig(), logger),
		worker.NewDeleteAllWorker(mem, logger, worker.WithDeleteChunkSize(10)),
		45,
		logger,
	)
}

func ExamplePostHandler_Populate() {
	h := handler.NewPost(newExampleService(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Populate(rec, httptest.NewRequest(http.MethodPost, "/populate", nil))

	var body models.PopulateResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)

	fmt.Println(rec.Code)
	fmt.Println(body.Message)
	// Output:
	// 200
	// Database populated with approximately 45 users
}

func ExampleGetHandler_Users() {
	svc := newExampleService()
	_, _ = svc.Populate(context.Background(), 45)

	h := handler.NewGet(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Users(rec, httptest.NewRequest(http.MethodGet, "/users?page=3&limit=20", nil))

	var users []models.User
	_ = json.NewDecoder(rec.Body).Decode(&users)

	fmt.Println(rec.Header().Get("Total-Pages"), len(users))
	// Output: 3 5
}

func ExampleDeleteHandler_DeleteAll() {
	svc := newExampleService()
	_, _ = svc.Populate(context.Background(), 45)

	h := handler.NewDelete(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.DeleteAll(rec, httptest.NewRequest(http.MethodDelete, "/deleteAll", nil))

	var body models.DeleteAllResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)

	fmt.Println(body.Message, body.Drained)
	// Output: Deleted 45 users true
}
