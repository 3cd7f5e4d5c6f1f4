package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/cart-api/internal/domain"
	"github.com/fjod/cart-api/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type CatalogMock struct {
	items []*domain.Item
}

func (c CatalogMock) FindItem(_ context.Context, id int64) (*domain.Item, error) {
	for _, it := range c.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, repository.ErrItemNotFound
}

func (c CatalogMock) FindItems(context.Context, []int64) ([]*domain.Item, error) {
	return c.items, nil
}

func (c CatalogMock) ListItems(context.Context) ([]*domain.Item, error) {
	return c.items, nil
}

var testCatalog = CatalogMock{items: []*domain.Item{
	{ID: 1, Name: "Item 1", Price: decimal.RequireFromString("10.22")},
	{ID: 2, Name: "Item 2", Price: decimal.RequireFromString("5.50")},
}}

func itemRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestItems_List(t *testing.T) {
	handler := NewItemHandler(testCatalog, 5*time.Second, discardLogger())

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{"id":1,"name":"Item 1","price":"10.22"},{"id":2,"name":"Item 2","price":"5.5"}]}`, rec.Body.String())
}

func TestItems_ListEmpty(t *testing.T) {
	handler := NewItemHandler(CatalogMock{}, 5*time.Second, discardLogger())

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestItems_Get(t *testing.T) {
	handler := NewItemHandler(testCatalog, 5*time.Second, discardLogger())

	rec := httptest.NewRecorder()
	handler.Get(rec, itemRequest("2"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"name":"Item 2","price":"5.5"}`, rec.Body.String())
}

func TestItems_GetNotFoundAndInvalid(t *testing.T) {
	handler := NewItemHandler(testCatalog, 5*time.Second, discardLogger())

	rec := httptest.NewRecorder()
	handler.Get(rec, itemRequest("99"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.Get(rec, itemRequest("abc"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
