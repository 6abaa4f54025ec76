package service

import (
	"context"
	"strings"

	"github.com/steams-social/steams-api/database"
	"github.com/steams-social/steams-api/database/model"

	"gorm.io/gorm"
)

// ComplaintService stores complaints and their admin action log.
type ComplaintService struct {
	db *gorm.DB
}

func NewComplaintService(db *gorm.DB) *ComplaintService {
	return &ComplaintService{db: db}
}

// Create files a complaint owned by owner.
func (s *ComplaintService) Create(ctx context.Context, owner *model.User, issue string) (*model.Complaint, error) {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return nil, ErrEmptyIssue
	}
	complaint := &model.Complaint{
		OwnerEmail: owner.Email,
		Issue:      issue,
	}
	if err := s.db.WithContext(ctx).Create(complaint).Error; err != nil {
		return nil, err
	}
	complaint.History = []model.ComplaintAdmin{}
	complaint.Status = complaint.CurrentStatus()
	return complaint, nil
}

// ListAll returns every complaint with its owner and action history.
func (s *ComplaintService) ListAll(ctx context.Context) ([]model.Complaint, error) {
	var complaints []model.Complaint
	err := s.withHistory(ctx).
		Preload("User").
		Order("complaint_uid ASC").
		Find(&complaints).
		Error
	if err != nil {
		return nil, err
	}
	return withStatus(complaints), nil
}

// ListByOwner returns the complaints filed by email.
func (s *ComplaintService) ListByOwner(ctx context.Context, email string) ([]model.Complaint, error) {
	var complaints []model.Complaint
	err := s.withHistory(ctx).
		Where("email = ?", email).
		Order("complaint_uid ASC").
		Find(&complaints).
		Error
	if err != nil {
		return nil, err
	}
	return withStatus(complaints), nil
}

// AppendAction records an admin decision on a complaint. The complaint row
// itself is never modified.
func (s *ComplaintService) AppendAction(ctx context.Context, complaintUID int, admin *model.User, status model.ComplaintStatus, response string) (*model.ComplaintAdmin, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	db := s.db.WithContext(ctx)

	var complaint model.Complaint
	err := db.Select("complaint_uid").Where("complaint_uid = ?", complaintUID).First(&complaint).Error
	if database.IsNotFound(err) {
		return nil, ErrComplaintNotFound
	} else if err != nil {
		return nil, err
	}

	action := &model.ComplaintAdmin{
		ComplaintUID: complaint.ComplaintUID,
		AdminId:      admin.Id,
		Status:       status,
		Response:     strings.TrimSpace(response),
	}
	if err := db.Create(action).Error; err != nil {
		return nil, err
	}
	return action, nil
}

func (s *ComplaintService) withHistory(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func withStatus(complaints []model.Complaint) []model.Complaint {
	if complaints == nil {
		return []model.Complaint{}
	}
	for i := range complaints {
		if complaints[i].History == nil {
			complaints[i].History = []model.ComplaintAdmin{}
		}
		complaints[i].Status = complaints[i].CurrentStatus()
	}
	return complaints
}
