package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// RequestFilter narrows the staff request listing.
type RequestFilter struct {
	HostelID  *uint
	StudentID *uint
	Status    models.RequestStatus
	Page      int
	PageSize  int
}

// RequestStatusCounts totals requests per status for the staff overview.
type RequestStatusCounts struct {
	Total    int64
	Pending  int64
	Approved int64
	Rejected int64
}

// RequestRepository reads hostel requests outside of allocation transactions.
type RequestRepository interface {
	GetByID(ctx context.Context, id uint) (models.HostelRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]models.HostelRequest, int64, error)
	CountByStatus(ctx context.Context, hostelID *uint) (RequestStatusCounts, error)
	LatestForStudent(ctx context.Context, studentID uint) (models.HostelRequest, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository constructs the request repository.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (models.HostelRequest, error) {
	var request models.HostelRequest
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Hostel").
		Preload("PreferredRoom.Floor.Hostel").
		First(&request, id).Error; err != nil {
		return models.HostelRequest{}, err
	}

	return request, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]models.HostelRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.HostelRequest{})

	if filter.HostelID != nil {
		query = query.Where("hostel_id = ?", *filter.HostelID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var requests []models.HostelRequest
	if err := query.
		Preload("Student").
		Preload("Hostel").
		Preload("PreferredRoom.Floor.Hostel").
		Order("created_at DESC").
		Order("id DESC").
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) CountByStatus(ctx context.Context, hostelID *uint) (RequestStatusCounts, error) {
	query := r.db.WithContext(ctx).Model(&models.HostelRequest{})
	if hostelID != nil {
		query = query.Where("hostel_id = ?", *hostelID)
	}

	var rows []struct {
		Status models.RequestStatus
		Count  int64
	}
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return RequestStatusCounts{}, err
	}

	var counts RequestStatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.RequestStatusPending:
			counts.Pending = row.Count
		case models.RequestStatusApproved:
			counts.Approved = row.Count
		case models.RequestStatusRejected:
			counts.Rejected = row.Count
		}
	}

	return counts, nil
}

// LatestForStudent prefers the student's active request and falls back to the
// most recent rejected one.
func (r *requestRepository) LatestForStudent(ctx context.Context, studentID uint) (models.HostelRequest, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Preload("Hostel").
			Preload("PreferredRoom.Floor.Hostel").
			Where("student_id = ?", studentID).
			Order("created_at DESC").
			Order("id DESC")
	}

	var request models.HostelRequest
	err := base().Where("status IN ?", models.ActiveRequestStatuses).First(&request).Error
	if err == nil {
		return request, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.HostelRequest{}, err
	}

	if err := base().First(&request).Error; err != nil {
		return models.HostelRequest{}, err
	}

	return request, nil
}
