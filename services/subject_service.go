package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/cache"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/gorm"
)

const subjectCacheTTL = 10 * time.Minute

// JSONCache is the subset of the redis cache the services read through
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SubjectWithCount is a subject plus the number of courses filed under it
type SubjectWithCount struct {
	model.Subject
	CourseCount int64 `json:"course_count"`
}

// SubjectInput is the payload for creating a subject
type SubjectInput struct {
	Title string
	Slug  string
}

// SubjectUpdate carries the fields to change; nil means keep
type SubjectUpdate struct {
	Title *string
	Slug  *string
}

// SubjectService manages subjects
type SubjectService struct {
	db    *gorm.DB
	cache JSONCache
	log   *logger.Logger
}

// NewSubjectService creates a new subject service; cache may be nil
func NewSubjectService(db *gorm.DB, cache JSONCache, log *logger.Logger) *SubjectService {
	if log == nil {
		log = logger.Nop()
	}
	return &SubjectService{db: db, cache: cache, log: log}
}

// subjectListCacheKey holds every subject, unfiltered, in title order
const subjectListCacheKey = "subjects:all"

func subjectCacheKey(id uint) string {
	return fmt.Sprintf("subject:%d", id)
}

func (s *SubjectService) withCounts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&model.Subject{}).
		Select("subjects.*, (SELECT COUNT(*) FROM courses WHERE courses.subject_id = subjects.id) AS course_count")
}

// List returns subjects ordered by title, optionally filtered by a title search.
// Unfiltered pages are cut from the cached full list when a cache is configured.
func (s *SubjectService) List(ctx context.Context, search string, page, limit int) ([]SubjectWithCount, int64, error) {
	if search == "" && s.cache != nil {
		all, err := s.listAll(ctx)
		if err != nil {
			return nil, 0, err
		}
		return pageOf(all, page, limit), int64(len(all)), nil
	}

	query := s.db.WithContext(ctx).Model(&model.Subject{})
	if search != "" {
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\'`, likePattern(search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subjects: %w", err)
	}

	rows := s.withCounts(ctx)
	if search != "" {
		rows = rows.Where(`LOWER(title) LIKE ? ESCAPE '\'`, likePattern(search))
	}

	var subjects []SubjectWithCount
	err := rows.Order("title ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&subjects).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, total, nil
}

func (s *SubjectService) listAll(ctx context.Context) ([]SubjectWithCount, error) {
	var subjects []SubjectWithCount
	err := s.cache.GetJSON(ctx, subjectListCacheKey, &subjects)
	if err == nil {
		return subjects, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		s.log.Warn("subject cache read failed", "key", subjectListCacheKey, "error", err)
	}

	subjects = nil
	if err := s.withCounts(ctx).Order("title ASC").Scan(&subjects).Error; err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	if err := s.cache.SetJSON(ctx, subjectListCacheKey, subjects, subjectCacheTTL); err != nil {
		s.log.Warn("subject cache write failed", "key", subjectListCacheKey, "error", err)
	}
	return subjects, nil
}

func pageOf(subjects []SubjectWithCount, page, limit int) []SubjectWithCount {
	start := (page - 1) * limit
	if start < 0 || start >= len(subjects) {
		return []SubjectWithCount{}
	}
	end := start + limit
	if end > len(subjects) {
		end = len(subjects)
	}
	return subjects[start:end]
}

// Get returns one subject with its course count, served from cache when possible
func (s *SubjectService) Get(ctx context.Context, id uint) (*SubjectWithCount, error) {
	key := subjectCacheKey(id)
	if s.cache != nil {
		var cached SubjectWithCount
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			s.log.Warn("subject cache read failed", "key", key, "error", err)
		}
	}

	var subjects []SubjectWithCount
	if err := s.withCounts(ctx).Where("subjects.id = ?", id).Limit(1).Scan(&subjects).Error; err != nil {
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}
	if len(subjects) == 0 {
		return nil, ErrSubjectNotFound
	}
	subject := subjects[0]

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, subject, subjectCacheTTL); err != nil {
			s.log.Warn("subject cache write failed", "key", key, "error", err)
		}
	}
	return &subject, nil
}

// Create adds a subject; the slug is derived from the title when omitted
func (s *SubjectService) Create(ctx context.Context, in SubjectInput) (*model.Subject, error) {
	slug, err := resolveSlug(in.Slug, in.Title)
	if err != nil {
		return nil, err
	}
	if err := slugAvailable(ctx, s.db, &model.Subject{}, slug, 0); err != nil {
		return nil, err
	}

	subject := model.Subject{Title: in.Title, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&subject).Error; err != nil {
		return nil, translateWriteError(err, "create subject")
	}
	s.Invalidate(ctx, subject.ID)
	return &subject, nil
}

// Update changes title and/or slug
func (s *SubjectService) Update(ctx context.Context, id uint, in SubjectUpdate) (*model.Subject, error) {
	var subject model.Subject
	if err := first(ctx, s.db, &subject, id, ErrSubjectNotFound); err != nil {
		return nil, err
	}

	if in.Title != nil {
		subject.Title = *in.Title
	}
	if in.Slug != nil {
		slug, err := resolveSlug(*in.Slug, subject.Title)
		if err != nil {
			return nil, err
		}
		if err := slugAvailable(ctx, s.db, &model.Subject{}, slug, id); err != nil {
			return nil, err
		}
		subject.Slug = slug
	}

	if err := s.db.WithContext(ctx).Save(&subject).Error; err != nil {
		return nil, translateWriteError(err, "update subject")
	}
	s.Invalidate(ctx, id)
	return &subject, nil
}

// Delete removes a subject that no course references
func (s *SubjectService) Delete(ctx context.Context, id uint) error {
	var subject model.Subject
	if err := first(ctx, s.db, &subject, id, ErrSubjectNotFound); err != nil {
		return err
	}

	var courses int64
	if err := s.db.WithContext(ctx).Model(&model.Course{}).Where("subject_id = ?", id).Count(&courses).Error; err != nil {
		return fmt.Errorf("failed to count courses: %w", err)
	}
	if courses > 0 {
		return fmt.Errorf("%w: %d course(s)", ErrSubjectHasCourses, courses)
	}

	if err := s.db.WithContext(ctx).Delete(&subject).Error; err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}
	s.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached copy of subject id and the cached list
func (s *SubjectService) Invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, subjectCacheKey(id), subjectListCacheKey); err != nil {
		s.log.Warn("subject cache invalidation failed", "subject_id", id, "error", err)
	}
}
