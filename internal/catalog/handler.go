package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/credential-vault/internal/auth"
	catalogDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/catalog"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateDepartment(actor *userDatamodel.User, dto CreateDepartmentDTO) (*catalogDatamodel.Department, error)
	UpdateDepartment(actor *userDatamodel.User, departmentID int64, dto UpdateDepartmentDTO) (*catalogDatamodel.Department, error)
	SetDepartmentActive(actor *userDatamodel.User, departmentID int64, isActive bool) (*catalogDatamodel.Department, error)
	ListDepartments(actor *userDatamodel.User) ([]*catalogDatamodel.Department, error)
	GetDepartment(departmentID int64) (*catalogDatamodel.Department, error)

	CreateService(actor *userDatamodel.User, dto CreateServiceDTO) (*catalogDatamodel.Service, error)
	UpdateService(actor *userDatamodel.User, serviceID int64, dto UpdateServiceDTO) (*catalogDatamodel.Service, error)
	SetServiceActive(actor *userDatamodel.User, serviceID int64, isActive bool) (*catalogDatamodel.Service, error)
	ListServices(actor *userDatamodel.User) ([]*catalogDatamodel.Service, error)
	GetService(serviceID int64) (*catalogDatamodel.Service, error)

	GrantAccess(actor *userDatamodel.User, dto ServiceAccessDTO) error
	RevokeAccess(actor *userDatamodel.User, dto ServiceAccessDTO) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateDepartment(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	departmentID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	var dto UpdateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.UpdateDepartment(actor, departmentID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeactivateDepartment(w http.ResponseWriter, r *http.Request) {
	h.setDepartmentActive(w, r, false)
}

func (h *Handler) ReactivateDepartment(w http.ResponseWriter, r *http.Request) {
	h.setDepartmentActive(w, r, true)
}

func (h *Handler) setDepartmentActive(w http.ResponseWriter, r *http.Request, isActive bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	departmentID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	updated, err := h.Service.SetDepartmentActive(actor, departmentID, isActive)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	departments, err := h.Service.ListDepartments(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"departments": departments})
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateServiceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateService(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serviceID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	var dto UpdateServiceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.UpdateService(actor, serviceID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeactivateService(w http.ResponseWriter, r *http.Request) {
	h.setServiceActive(w, r, false)
}

func (h *Handler) ReactivateService(w http.ResponseWriter, r *http.Request) {
	h.setServiceActive(w, r, true)
}

func (h *Handler) setServiceActive(w http.ResponseWriter, r *http.Request, isActive bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serviceID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	updated, err := h.Service.SetServiceActive(actor, serviceID, isActive)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	services, err := h.Service.ListServices(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"services": services})
}

func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	h.access(w, r, true)
}

func (h *Handler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	h.access(w, r, false)
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request, grant bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto ServiceAccessDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	if grant {
		err = h.Service.GrantAccess(actor, dto)
	} else {
		err = h.Service.RevokeAccess(actor, dto)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
