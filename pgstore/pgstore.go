// Package pgstore keeps visits in PostgreSQL through gorm. List-valued
// fields live in JSONB columns.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/eringen/medlog/visits"
)

// visitRow is the visit table.
type visitRow struct {
	ID           string                                 `gorm:"primaryKey;type:text"`
	UserID       string                                 `gorm:"type:text;not null;index:idx_visit_user_date,priority:1"`
	VisitDate    string                                 `gorm:"type:varchar(10);not null;index:idx_visit_user_date,priority:2"`
	DoctorName   string                                 `gorm:"type:text;not null"`
	Reason       string                                 `gorm:"type:text;not null"`
	Diagnosis    string                                 `gorm:"type:text;not null;default:''"`
	Notes        string                                 `gorm:"type:text;not null;default:''"`
	Category     string                                 `gorm:"type:varchar(64);not null"`
	FollowUpDate string                                 `gorm:"type:varchar(10);not null;default:''"`
	Medications  datatypes.JSONSlice[string]            `gorm:"type:jsonb;not null"`
	TestResults  datatypes.JSONSlice[string]            `gorm:"type:jsonb;not null"`
	Symptoms     datatypes.JSONSlice[visits.Symptom]    `gorm:"type:jsonb;not null"`
	Attachments  datatypes.JSONSlice[visits.Attachment] `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time                              `gorm:"not null"`
}

func (visitRow) TableName() string { return "visit" }

func toRow(v visits.Visit) visitRow {
	return visitRow{
		ID:           v.ID,
		UserID:       v.UserID,
		VisitDate:    v.Date,
		DoctorName:   v.DoctorName,
		Reason:       v.Reason,
		Diagnosis:    v.Diagnosis,
		Notes:        v.Notes,
		Category:     string(v.Category),
		FollowUpDate: v.FollowUpDate,
		Medications:  datatypes.NewJSONSlice(orEmpty(v.Medications)),
		TestResults:  datatypes.NewJSONSlice(orEmpty(v.TestResults)),
		Symptoms:     datatypes.NewJSONSlice(orEmpty(v.Symptoms)),
		Attachments:  datatypes.NewJSONSlice(orEmpty(v.Attachments)),
		CreatedAt:    v.CreatedAt,
	}
}

func (r visitRow) visit() visits.Visit {
	v := visits.Visit{
		ID:           r.ID,
		UserID:       r.UserID,
		Date:         r.VisitDate,
		DoctorName:   r.DoctorName,
		Reason:       r.Reason,
		Diagnosis:    r.Diagnosis,
		Notes:        r.Notes,
		Category:     visits.Category(r.Category),
		FollowUpDate: r.FollowUpDate,
		Medications:  orEmpty([]string(r.Medications)),
		TestResults:  orEmpty([]string(r.TestResults)),
		Symptoms:     orEmpty([]visits.Symptom(r.Symptoms)),
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Attachments) > 0 {
		v.Attachments = []visits.Attachment(r.Attachments)
	}
	return v
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Store implements visits.Repository on PostgreSQL.
type Store struct {
	db *gorm.DB
}

var _ visits.Repository = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&visitRow{}); err != nil {
		return nil, fmt.Errorf("pgstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListVisits returns every visit of userID ordered by visit date descending.
func (s *Store) ListVisits(ctx context.Context, userID string) ([]visits.Visit, error) {
	var rows []visitRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("visit_date DESC").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]visits.Visit, len(rows))
	for i, r := range rows {
		out[i] = r.visit()
	}
	return out, nil
}

// GetVisit returns a single visit owned by userID.
func (s *Store) GetVisit(ctx context.Context, userID, id string) (visits.Visit, error) {
	var row visitRow
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return visits.Visit{}, visits.ErrNotFound
	}
	if err != nil {
		return visits.Visit{}, err
	}
	return row.visit(), nil
}

// SaveVisit upserts a visit. An existing row owned by a different user is
// left untouched and ErrNotFound is returned.
func (s *Store) SaveVisit(ctx context.Context, v visits.Visit) error {
	if v.ID == "" || v.UserID == "" {
		return errors.New("pgstore: save visit: id and user id are required")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	row := toRow(v)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing visitRow
		err := tx.Select("user_id").Where("id = ?", row.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&row).Error
		case err != nil:
			return err
		case existing.UserID != row.UserID:
			return visits.ErrNotFound
		}
		return tx.Omit("created_at").Save(&row).Error
	})
}

// DeleteVisit removes a visit owned by userID.
func (s *Store) DeleteVisit(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&visitRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return visits.ErrNotFound
	}
	return nil
}
