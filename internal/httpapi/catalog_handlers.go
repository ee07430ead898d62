package httpapi

import (
	"net/http"

	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/catalog"
)

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.catalog.Products(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.catalog.View(r.Context(), r.PathValue("id"), clientIP(r))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	p, err := a.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionCreateProduct, p.ID, map[string]any{"name": p.Name})
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductUpdate
	if !decodeOrReject(w, r, &req) {
		return
	}
	p, err := a.catalog.UpdateProduct(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionUpdateProduct, p.ID, map[string]any{"name": p.Name})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.catalog.DeleteProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionDeleteProduct, p.ID, map[string]any{"name": p.Name})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Product deleted", ID: p.ID})
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req catalog.OrderInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	o, err := a.catalog.PlaceOrder(r.Context(), req)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.catalog.Orders(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *API) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	o, err := a.catalog.SetOrderStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionUpdateOrderStatus, o.ID, map[string]any{"status": string(o.Status)})
	writeJSON(w, http.StatusOK, o)
}
