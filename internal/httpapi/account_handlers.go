package httpapi

import (
	"net/http"
	"time"

	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Admin     auth.Account `json:"admin"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateAccountRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	session, err := a.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	actor := auth.Identity{AccountID: session.Account.ID, Role: session.Account.Role}
	a.record(r, actor, audit.ActionLogin, session.Account.ID, nil)
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Admin:     session.Account,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	acc, err := a.accounts.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionRegisterAdmin, acc.ID, map[string]any{
		"username": acc.Username,
		"role":     string(acc.Role),
	})
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.accounts.List(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (a *API) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateAccountRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	before, err := a.accounts.Get(r.Context(), id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	acc, err := a.accounts.Update(r.Context(), id, auth.AccountChanges{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	changed := make([]string, 0, 3)
	if req.Username != nil {
		changed = append(changed, "username")
	}
	if req.Password != nil {
		changed = append(changed, "password")
	}
	if req.Role != nil {
		changed = append(changed, "role")
	}
	a.recordCaller(r, audit.ActionUpdateAdmin, acc.ID, map[string]any{"fields": changed})
	if before.Role != acc.Role {
		a.recordCaller(r, audit.ActionRoleChange, acc.ID, map[string]any{
			"from": string(before.Role),
			"to":   string(acc.Role),
		})
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := a.accounts.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionDeleteAdmin, acc.ID, map[string]any{
		"username": acc.Username,
		"role":     string(acc.Role),
	})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Admin deleted", ID: acc.ID})
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req updateProfileRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	acc, err := a.accounts.UpdateProfile(r.Context(), id.AccountID, auth.ProfileChanges{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionUpdateProfile, acc.ID, nil)
	writeJSON(w, http.StatusOK, acc)
}

// record hands an event to the audit log. It never fails the request.
func (a *API) record(r *http.Request, actor auth.Identity, action audit.Action, targetID string, meta map[string]any) {
	a.audit.Record(r.Context(), audit.Event{
		ActorID:   actor.AccountID,
		Role:      actor.Role,
		Action:    action,
		TargetID:  targetID,
		Metadata:  meta,
		IPAddress: clientIP(r),
	})
}

// recordCaller records an event on behalf of the authenticated caller.
func (a *API) recordCaller(r *http.Request, action audit.Action, targetID string, meta map[string]any) {
	id, _ := auth.IdentityFromContext(r.Context())
	a.record(r, id, action, targetID, meta)
}
