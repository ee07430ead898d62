package httpapi

import (
	"net/http"

	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/customer"
)

type customerRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type customerLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleCustomerRegister(w http.ResponseWriter, r *http.Request) {
	var req customerRegisterRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	session, err := a.customers.Register(r.Context(), customer.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleCustomerLogin(w http.ResponseWriter, r *http.Request) {
	var req customerLoginRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	session, err := a.customers.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleCustomerMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	c, err := a.customers.Get(r.Context(), id.AccountID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
