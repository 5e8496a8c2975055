package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// RoomFilter narrows the available-rooms listing.
type RoomFilter struct {
	HostelID *uint
	Gender   models.Gender
	Capacity int
}

// HostelOccupancy is the aggregated bed usage of one hostel.
type HostelOccupancy struct {
	HostelID       uint
	HostelName     string
	Gender         models.Gender
	TotalRooms     int64
	AvailableRooms int64
	TotalBeds      int64
	OccupiedBeds   int64
}

// HostelRepository reads and maintains hostel layouts.
type HostelRepository interface {
	List(ctx context.Context, gender models.Gender) ([]models.Hostel, error)
	GetByID(ctx context.Context, id uint) (models.Hostel, error)
	GetRoom(ctx context.Context, id uint) (models.Room, error)
	ListAvailableRooms(ctx context.Context, filter RoomFilter) ([]models.Room, error)
	OccupancyTotals(ctx context.Context) ([]HostelOccupancy, error)
	UpsertLayout(ctx context.Context, hostel *models.Hostel) error
}

type hostelRepository struct {
	db *gorm.DB
}

// NewHostelRepository constructs the hostel repository.
func NewHostelRepository(db *gorm.DB) HostelRepository {
	return &hostelRepository{db: db}
}

func (r *hostelRepository) List(ctx context.Context, gender models.Gender) ([]models.Hostel, error) {
	query := r.db.WithContext(ctx).Model(&models.Hostel{})
	if gender != "" {
		query = query.Where("gender = ?", gender)
	}

	var hostels []models.Hostel
	if err := query.Order("name ASC").Find(&hostels).Error; err != nil {
		return nil, err
	}

	return hostels, nil
}

func (r *hostelRepository) GetByID(ctx context.Context, id uint) (models.Hostel, error) {
	var hostel models.Hostel
	if err := r.db.WithContext(ctx).First(&hostel, id).Error; err != nil {
		return models.Hostel{}, err
	}

	return hostel, nil
}

func (r *hostelRepository) GetRoom(ctx context.Context, id uint) (models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Preload("Floor.Hostel").First(&room, id).Error; err != nil {
		return models.Room{}, err
	}

	return room, nil
}

// ListAvailableRooms returns non-full rooms ordered by hostel, floor and room number.
func (r *hostelRepository) ListAvailableRooms(ctx context.Context, filter RoomFilter) ([]models.Room, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Select("rooms.*").
		Joins("JOIN floors ON floors.id = rooms.floor_id").
		Joins("JOIN hostels ON hostels.id = floors.hostel_id").
		Where("rooms.current_occupancy < rooms.capacity")

	if filter.HostelID != nil {
		query = query.Where("floors.hostel_id = ?", *filter.HostelID)
	}
	if filter.Gender != "" {
		query = query.Where("hostels.gender = ?", filter.Gender)
	}
	if filter.Capacity > 0 {
		query = query.Where("rooms.capacity = ?", filter.Capacity)
	}

	var rooms []models.Room
	if err := query.
		Preload("Floor.Hostel").
		Order("hostels.name ASC").
		Order("floors.level ASC").
		Order("rooms.room_number ASC").
		Order("rooms.id ASC").
		Find(&rooms).Error; err != nil {
		return nil, err
	}

	return rooms, nil
}

// OccupancyTotals aggregates rooms and beds per hostel in a single query.
// Hostels without rooms are included with zero totals.
func (r *hostelRepository) OccupancyTotals(ctx context.Context) ([]HostelOccupancy, error) {
	var totals []HostelOccupancy
	err := r.db.WithContext(ctx).
		Table("hostels").
		Select(`hostels.id AS hostel_id,
			hostels.name AS hostel_name,
			hostels.gender AS gender,
			COUNT(rooms.id) AS total_rooms,
			COALESCE(SUM(CASE WHEN rooms.current_occupancy < rooms.capacity THEN 1 ELSE 0 END), 0) AS available_rooms,
			COALESCE(SUM(rooms.capacity), 0) AS total_beds,
			COALESCE(SUM(rooms.current_occupancy), 0) AS occupied_beds`).
		Joins("LEFT JOIN floors ON floors.hostel_id = hostels.id").
		Joins("LEFT JOIN rooms ON rooms.floor_id = floors.id").
		Group("hostels.id, hostels.name, hostels.gender").
		Order("hostels.name ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	return totals, nil
}

// UpsertLayout creates or refreshes a hostel with its floors and rooms.
// An existing hostel keeps its gender and existing rooms keep their capacity
// and occupancy, so a reseed never invalidates current allocations.
func (r *hostelRepository) UpsertLayout(ctx context.Context, hostel *models.Hostel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		floors := hostel.Floors
		hostel.Floors = nil

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
		}).Create(hostel).Error; err != nil {
			return err
		}
		var stored models.Hostel
		if err := tx.Where("name = ?", hostel.Name).First(&stored).Error; err != nil {
			return err
		}
		*hostel = stored

		for i := range floors {
			floor := &floors[i]
			rooms := floor.Rooms
			floor.Rooms = nil
			floor.HostelID = hostel.ID

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hostel_id"}, {Name: "floor_type"}},
				DoUpdates: clause.AssignmentColumns([]string{"level"}),
			}).Omit(clause.Associations).Create(floor).Error; err != nil {
				return err
			}
			var storedFloor models.Floor
			if err := tx.Where("hostel_id = ? AND floor_type = ?", hostel.ID, floor.FloorType).First(&storedFloor).Error; err != nil {
				return err
			}
			*floor = storedFloor

			for j := range rooms {
				rooms[j].FloorID = floor.ID
				rooms[j].CurrentOccupancy = 0
			}
			if len(rooms) > 0 {
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "floor_id"}, {Name: "room_number"}},
					DoNothing: true,
				}).Omit(clause.Associations).Create(&rooms).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("floor_id = ?", floor.ID).Order("room_number ASC").Find(&floor.Rooms).Error; err != nil {
				return err
			}
		}

		hostel.Floors = floors
		return nil
	})
}
