package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	requestDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/request"
	"github.com/frahmantamala/credential-vault/internal/request"
)

// RequestRepository implements the request.Repository interface using GORM
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) request.Repository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(req *requestDatamodel.AccessRequest) error {
	return r.db.Create(req).Error
}

func (r *RequestRepository) GetByID(id int64) (*requestDatamodel.AccessRequest, error) {
	var req requestDatamodel.AccessRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, request.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// CloseIfPending is the compare-and-set out of pending. The WHERE clause on
// status makes concurrent reviewers race on the row; RowsAffected tells the
// caller whether it won.
func (r *RequestRepository) CloseIfPending(id int64, status string, reviewerID *int64, comment string, reviewedAt time.Time) (bool, error) {
	res := r.db.Model(&requestDatamodel.AccessRequest{}).
		Where("id = ? AND status = ?", id, requestDatamodel.StatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"reviewer_id":    reviewerID,
			"review_comment": comment,
			"reviewed_at":    reviewedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *RequestRepository) HasPending(requesterID, serviceID int64) (bool, error) {
	var count int64
	err := r.db.Model(&requestDatamodel.AccessRequest{}).
		Where("requester_id = ? AND service_id = ? AND status = ?", requesterID, serviceID, requestDatamodel.StatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *RequestRepository) HasPendingForService(serviceID int64) (bool, error) {
	var count int64
	err := r.db.Model(&requestDatamodel.AccessRequest{}).
		Where("service_id = ? AND status = ?", serviceID, requestDatamodel.StatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *RequestRepository) ListByRequester(requesterID int64) ([]*requestDatamodel.AccessRequest, error) {
	var requests []*requestDatamodel.AccessRequest
	err := r.db.Where("requester_id = ?", requesterID).
		Order("requested_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *RequestRepository) ListPendingByDepartments(departmentIDs []int64) ([]*requestDatamodel.AccessRequest, error) {
	if len(departmentIDs) == 0 {
		return nil, nil
	}
	var requests []*requestDatamodel.AccessRequest
	err := r.db.
		Joins("JOIN users u ON u.id = access_requests.requester_id").
		Where("u.department_id IN ? AND access_requests.status = ?", departmentIDs, requestDatamodel.StatusPending).
		Order("access_requests.requested_at ASC").
		Find(&requests).Error
	return requests, err
}

func (r *RequestRepository) ListPending() ([]*requestDatamodel.AccessRequest, error) {
	var requests []*requestDatamodel.AccessRequest
	err := r.db.Where("status = ?", requestDatamodel.StatusPending).
		Order("requested_at ASC").
		Find(&requests).Error
	return requests, err
}
