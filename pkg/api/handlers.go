package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/tenantctx/pkg/httputil"
	"github.com/platinummonkey/tenantctx/pkg/identity"
	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
	"github.com/platinummonkey/tenantctx/pkg/tenant"
)

// switchBranchRequest is the body of POST /v1/context/branch.
type switchBranchRequest struct {
	BranchID string `json:"branchId"`
}

// switchCompanyRequest is the body of POST /v1/context/company.
type switchCompanyRequest struct {
	CompanyID string `json:"companyId"`
}

type resumeResponse struct {
	Resumed bool `json:"resumed"`
}

type checkResponse struct {
	Route   string `json:"route"`
	Action  string `json:"action"`
	Granted bool   `json:"granted"`
}

func (s *Server) establishContext(w http.ResponseWriter, r *http.Request) {
	var payload identity.UserPayload
	if !httputil.ParseJSONOrError(w, r, &payload) {
		return
	}
	if payload.ID == "" {
		httputil.WriteBadRequest(w, "user id is required")
		return
	}

	if err := s.manager.EstablishFromPayload(r.Context(), &payload); err != nil {
		s.writeContextError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, s.manager.Snapshot())
}

func (s *Server) resumeContext(w http.ResponseWriter, r *http.Request) {
	ok, err := s.manager.Resume(r.Context())
	if err != nil {
		s.writeContextError(w, err)
		return
	}
	httputil.WriteSuccess(w, resumeResponse{Resumed: ok})
}

func (s *Server) getContext(w http.ResponseWriter, r *http.Request) {
	state := s.manager.Snapshot()
	if !state.Established() {
		httputil.WriteNotFound(w, "no active context")
		return
	}
	httputil.WriteSuccess(w, state)
}

func (s *Server) switchBranch(w http.ResponseWriter, r *http.Request) {
	var req switchBranchRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.BranchID == "" {
		httputil.WriteBadRequest(w, "branchId is required")
		return
	}

	if err := s.manager.SwitchBranch(r.Context(), req.BranchID); err != nil {
		s.writeContextError(w, err)
		return
	}
	httputil.WriteSuccess(w, s.manager.Snapshot())
}

func (s *Server) switchCompany(w http.ResponseWriter, r *http.Request) {
	var req switchCompanyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.CompanyID == "" {
		httputil.WriteBadRequest(w, "companyId is required")
		return
	}

	if err := s.manager.SwitchCompany(r.Context(), req.CompanyID); err != nil {
		s.writeContextError(w, err)
		return
	}
	httputil.WriteSuccess(w, s.manager.Snapshot())
}

func (s *Server) clearContext(w http.ResponseWriter, r *http.Request) {
	s.manager.Clear(r.Context())
	httputil.WriteNoContent(w)
}

func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Snapshot().Established() {
		httputil.WriteNotFound(w, "no active context")
		return
	}

	f := menu.Filter{
		Text:          httputil.ParseQueryString(r, "text", ""),
		Module:        httputil.ParseQueryString(r, "module", ""),
		Action:        permission.Action(httputil.ParseQueryString(r, "action", "")),
		IncludeDenied: httputil.ParseQueryBool(r, "includeDenied", false),
	}
	httputil.WriteSuccess(w, s.manager.VisibleMenu(f))
}

func (s *Server) checkPermission(w http.ResponseWriter, r *http.Request) {
	route := httputil.ParseQueryString(r, "route", "")
	action := httputil.ParseQueryString(r, "action", "")
	if route == "" || action == "" {
		httputil.WriteBadRequest(w, "route and action query parameters are required")
		return
	}

	httputil.WriteSuccess(w, checkResponse{
		Route:   route,
		Action:  action,
		Granted: s.manager.HasPermission(route, permission.Action(action)),
	})
}

// writeContextError maps engine errors to HTTP statuses: a missing
// context is a conflict, an out-of-access target is forbidden, a user
// without companies is unprocessable.
func (s *Server) writeContextError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrNoActiveContext):
		httputil.WriteConflict(w, err.Error())
	case tenant.IsBranchNotAvailable(err), tenant.IsCompanyNotAvailable(err):
		httputil.WriteForbidden(w, err.Error())
	case tenant.IsNoCompanyAvailable(err):
		httputil.WriteErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.WithError(err).Error("context operation failed")
		httputil.WriteInternalError(w, err)
	}
}
