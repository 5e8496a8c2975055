package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// AllocationTx exposes the row operations an approval or submission performs
// inside a single database transaction. Implementations must not be used after
// the enclosing WithinTx callback returns.
type AllocationTx interface {
	LockRequest(id uint) (models.HostelRequest, error)
	LockStudent(id uint) (models.Student, error)
	GetHostel(id uint) (models.Hostel, error)
	GetRoom(id uint) (models.Room, error)
	CountActiveRequests(studentID uint) (int64, error)
	CreateRequest(request *models.HostelRequest) error
	FindOpenRoom(hostelID uint, capacity int, excludeRoomID uint) (models.Room, error)
	GetAllocation(studentID uint) (models.Allocation, error)
	CreateAllocation(allocation *models.Allocation) error
	MoveAllocation(allocation *models.Allocation, roomID uint) error
	IncrementOccupancy(roomID uint) error
	DecrementOccupancy(roomID uint) error
	UpdateRequestStatus(request *models.HostelRequest) error
}

// AllocationFilter narrows the allocation overview.
type AllocationFilter struct {
	HostelID *uint
	Page     int
	PageSize int
}

// OccupancyDrift describes a room whose counter disagrees with its allocations.
type OccupancyDrift struct {
	RoomID    uint
	Capacity  int
	Recorded  int
	Allocated int
}

// AllocationRepository owns allocation reads and the transaction boundary for
// allocation writes.
type AllocationRepository interface {
	WithinTx(ctx context.Context, fn func(tx AllocationTx) error) error
	GetByStudent(ctx context.Context, studentID uint) (models.Allocation, error)
	List(ctx context.Context, filter AllocationFilter) ([]models.Allocation, int64, error)
	FindOccupancyDrift(ctx context.Context) ([]OccupancyDrift, error)
	SyncOccupancy(ctx context.Context, roomID uint) error
}

type allocationRepository struct {
	db *gorm.DB
}

// NewAllocationRepository constructs the allocation repository.
func NewAllocationRepository(db *gorm.DB) AllocationRepository {
	return &allocationRepository{db: db}
}

func forUpdate() clause.Expression { return clause.Locking{Strength: "UPDATE"} }

func forUpdateOf(table string) clause.Expression {
	return clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: table}}
}

func (r *allocationRepository) WithinTx(ctx context.Context, fn func(tx AllocationTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&allocationTx{db: tx})
	})
}

func (r *allocationRepository) GetByStudent(ctx context.Context, studentID uint) (models.Allocation, error) {
	var allocation models.Allocation
	if err := r.db.WithContext(ctx).
		Preload("Room.Floor.Hostel").
		Where("student_id = ?", studentID).
		First(&allocation).Error; err != nil {
		return models.Allocation{}, err
	}

	return allocation, nil
}

func (r *allocationRepository) List(ctx context.Context, filter AllocationFilter) ([]models.Allocation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Allocation{})

	if filter.HostelID != nil {
		query = query.
			Joins("JOIN rooms ON rooms.id = allocations.room_id").
			Joins("JOIN floors ON floors.id = rooms.floor_id").
			Where("floors.hostel_id = ?", *filter.HostelID)
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
		query = query.Limit(filter.PageSize).Offset((page - 1) * filter.PageSize)
	}

	var allocations []models.Allocation
	if err := query.
		Preload("Student").
		Preload("Room.Floor.Hostel").
		Order("allocations.allocated_at DESC").
		Order("allocations.id DESC").
		Find(&allocations).Error; err != nil {
		return nil, 0, err
	}

	return allocations, total, nil
}

func (r *allocationRepository) FindOccupancyDrift(ctx context.Context) ([]OccupancyDrift, error) {
	var drifts []OccupancyDrift
	err := r.db.WithContext(ctx).
		Table("rooms").
		Select("rooms.id AS room_id, rooms.capacity AS capacity, rooms.current_occupancy AS recorded, COUNT(allocations.id) AS allocated").
		Joins("LEFT JOIN allocations ON allocations.room_id = rooms.id").
		Group("rooms.id, rooms.capacity, rooms.current_occupancy").
		Having("rooms.current_occupancy <> COUNT(allocations.id)").
		Order("rooms.id").
		Scan(&drifts).Error
	if err != nil {
		return nil, err
	}

	return drifts, nil
}

// SyncOccupancy resets the room counter to its allocation count in a single
// statement. A room holding more allocations than beds is left untouched.
func (r *allocationRepository) SyncOccupancy(ctx context.Context, roomID uint) error {
	allocated := r.db.WithContext(ctx).Model(&models.Allocation{}).
		Select("COUNT(*)").
		Where("allocations.room_id = rooms.id")

	update := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Where("(?) <= capacity", allocated).
		UpdateColumn("current_occupancy", gorm.Expr("(?)", allocated))
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return fmt.Errorf("%w: room %d cannot hold its allocations", models.ErrOccupancyInvariant, roomID)
	}
	return nil
}

type allocationTx struct {
	db *gorm.DB
}

func (t *allocationTx) LockRequest(id uint) (models.HostelRequest, error) {
	var request models.HostelRequest
	if err := t.db.Clauses(forUpdate()).First(&request, id).Error; err != nil {
		return models.HostelRequest{}, err
	}
	return request, nil
}

func (t *allocationTx) LockStudent(id uint) (models.Student, error) {
	var student models.Student
	if err := t.db.Clauses(forUpdate()).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (t *allocationTx) GetHostel(id uint) (models.Hostel, error) {
	var hostel models.Hostel
	if err := t.db.First(&hostel, id).Error; err != nil {
		return models.Hostel{}, err
	}
	return hostel, nil
}

func (t *allocationTx) GetRoom(id uint) (models.Room, error) {
	var room models.Room
	if err := t.db.Preload("Floor.Hostel").First(&room, id).Error; err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (t *allocationTx) CountActiveRequests(studentID uint) (int64, error) {
	var count int64
	err := t.db.Model(&models.HostelRequest{}).
		Where("student_id = ?", studentID).
		Where("status IN ?", models.ActiveRequestStatuses).
		Count(&count).Error
	return count, err
}

func (t *allocationTx) CreateRequest(request *models.HostelRequest) error {
	return t.db.Omit(clause.Associations).Create(request).Error
}

// FindOpenRoom returns the first non-full room of the hostel in floor then
// room-number order. A zero capacity matches any size; a zero excludeRoomID
// excludes nothing.
func (t *allocationTx) FindOpenRoom(hostelID uint, capacity int, excludeRoomID uint) (models.Room, error) {
	query := t.db.Model(&models.Room{}).
		Select("rooms.*").
		Joins("JOIN floors ON floors.id = rooms.floor_id").
		Where("floors.hostel_id = ?", hostelID).
		Where("rooms.current_occupancy < rooms.capacity")

	if capacity > 0 {
		query = query.Where("rooms.capacity = ?", capacity)
	}
	if excludeRoomID > 0 {
		query = query.Where("rooms.id <> ?", excludeRoomID)
	}

	var room models.Room
	err := query.
		Order("floors.level ASC").
		Order("rooms.room_number ASC").
		Order("rooms.id ASC").
		Clauses(forUpdateOf("rooms")).
		Take(&room).Error
	if err != nil {
		return models.Room{}, err
	}

	return room, nil
}

func (t *allocationTx) GetAllocation(studentID uint) (models.Allocation, error) {
	var allocation models.Allocation
	if err := t.db.Clauses(forUpdate()).Where("student_id = ?", studentID).First(&allocation).Error; err != nil {
		return models.Allocation{}, err
	}
	return allocation, nil
}

func (t *allocationTx) CreateAllocation(allocation *models.Allocation) error {
	return t.db.Omit(clause.Associations).Create(allocation).Error
}

func (t *allocationTx) MoveAllocation(allocation *models.Allocation, roomID uint) error {
	update := t.db.Model(&models.Allocation{}).
		Where("id = ?", allocation.ID).
		Updates(map[string]interface{}{
			"room_id":      roomID,
			"allocated_at": allocation.AllocatedAt,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	allocation.RoomID = roomID
	return nil
}

// IncrementOccupancy adds one occupant, refusing to push the room past capacity.
func (t *allocationTx) IncrementOccupancy(roomID uint) error {
	update := t.db.Model(&models.Room{}).
		Where("id = ?", roomID).
		Where("current_occupancy < capacity").
		UpdateColumn("current_occupancy", gorm.Expr("current_occupancy + ?", 1))
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return fmt.Errorf("%w: room %d has no free bed", models.ErrOccupancyInvariant, roomID)
	}
	return nil
}

// DecrementOccupancy removes one occupant; an already empty room stays at zero.
func (t *allocationTx) DecrementOccupancy(roomID uint) error {
	update := t.db.Model(&models.Room{}).
		Where("id = ?", roomID).
		Where("current_occupancy > 0").
		UpdateColumn("current_occupancy", gorm.Expr("current_occupancy - ?", 1))
	return update.Error
}

func (t *allocationTx) UpdateRequestStatus(request *models.HostelRequest) error {
	update := t.db.Model(&models.HostelRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]interface{}{
			"status":      request.Status,
			"reviewed_by": request.ReviewedBy,
			"reviewed_at": request.ReviewedAt,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is a missing-record error from the store.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
