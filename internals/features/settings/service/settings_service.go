package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"universitypoland_backend/internals/features/settings/model"
)

// Setting keys used by the finance feature.
const (
	KeyApplicationFeeAmount = "application_fee_amount"
	KeyCommitmentFeeAmount  = "commitment_fee_amount"
	KeyFeeCurrency          = "fee_currency"
)

const DefaultCurrency = "PLN"

var ErrSettingNotFound = errors.New("setting not found")

// Store is the persistence boundary for settings rows.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, value string) error
}

/* =======================================================================
   GORM store
======================================================================= */

type gormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) Get(ctx context.Context, key string) (string, error) {
	var row model.SettingModel
	err := s.db.WithContext(ctx).
		First(&row, "setting_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", err
	}
	return row.SettingValue, nil
}

func (s *gormStore) Upsert(ctx context.Context, key, value string) error {
	row := model.SettingModel{
		SettingKey:       key,
		SettingValue:     value,
		SettingUpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value", "setting_updated_at"}),
		}).
		Create(&row).Error
}

/* =======================================================================
   Cached service
======================================================================= */

// Service is a read-through cache over the settings table. Writes go to the
// store first and invalidate the cached entry, so concurrent readers never
// see a value older than the last completed write for longer than one fetch.
type Service struct {
	store Store

	mu    sync.RWMutex
	cache map[string]string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		cache: make(map[string]string),
	}
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	v, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.cache[key] = v
	s.mu.Unlock()
	return v, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.store.Upsert(ctx, key, value); err != nil {
		return err
	}
	s.Invalidate(key)
	return nil
}

func (s *Service) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}

/* =======================================================================
   Fee config accessors (consumed by the payment ledger)
======================================================================= */

// Amount resolves a fee amount setting as a positive integer in the minor
// currency unit.
func (s *Service) Amount(ctx context.Context, key string) (int64, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid amount for setting " + key)
	}
	return n, nil
}

// Currency falls back to the default when the setting is absent.
func (s *Service) Currency(ctx context.Context) (string, error) {
	v, err := s.Get(ctx, KeyFeeCurrency)
	if errors.Is(err, ErrSettingNotFound) {
		return DefaultCurrency, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
