package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/sumo/backend/internal/models"
)

var ErrFromDateRequired = errors.New("from date is required")

// ContributorFilter selects the revisions that make their creators and
// reviewers active contributors.
type ContributorFilter struct {
	From time.Time
	// To is exclusive; the zero value leaves the window unbounded above.
	To     time.Time
	Locale string
	// Product is a product slug. A revision matches when its document, or
	// the document's parent, carries the product.
	Product string
}

// ContributorService computes active knowledge base contributors: users
// who created or reviewed a revision in a time window. Results are not
// paginated or cached, so wide windows load every matching user.
type ContributorService struct {
	db *gorm.DB
}

func NewContributorService(db *gorm.DB) *ContributorService {
	return &ContributorService{db: db}
}

// ActiveContributors returns the matching users ordered by username.
func (s *ContributorService) ActiveContributors(ctx context.Context, f ContributorFilter) ([]models.User, error) {
	start := time.Now()
	defer func() {
		contributorQueryDuration.WithLabelValues("list").Observe(time.Since(start).Seconds())
	}()

	ids, err := s.activeContributorIDs(ctx, f)
	if err != nil {
		return nil, err
	}

	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err = s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// NumActiveContributors returns the size of the ActiveContributors set.
func (s *ContributorService) NumActiveContributors(ctx context.Context, f ContributorFilter) (int, error) {
	start := time.Now()
	defer func() {
		contributorQueryDuration.WithLabelValues("count").Observe(time.Since(start).Seconds())
	}()

	ids, err := s.activeContributorIDs(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// activeContributorIDs unions the distinct editors and reviewers, sorted for
// stable query parameters.
func (s *ContributorService) activeContributorIDs(ctx context.Context, f ContributorFilter) ([]uint, error) {
	if f.From.IsZero() {
		return nil, ErrFromDateRequired
	}

	var editors, reviewers []uint
	if err := s.contributions(ctx, "creator_id", "created", f).Pluck("revisions.creator_id", &editors).Error; err != nil {
		return nil, err
	}
	if err := s.contributions(ctx, "reviewer_id", "reviewed", f).Pluck("revisions.reviewer_id", &reviewers).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(editors)+len(reviewers))
	for _, id := range append(editors, reviewers...) {
		seen[id] = struct{}{}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// contributions selects the distinct userCol of revisions whose timeCol lies
// in the filter window, restricted by locale and product.
func (s *ContributorService) contributions(ctx context.Context, userCol, timeCol string, f ContributorFilter) *gorm.DB {
	q := s.db.WithContext(ctx).
		Model(&models.Revision{}).
		Distinct().
		Where("revisions."+userCol+" IS NOT NULL").
		Where("revisions."+timeCol+" >= ?", f.From)

	if !f.To.IsZero() {
		q = q.Where("revisions."+timeCol+" < ?", f.To)
	}

	if f.Locale != "" || f.Product != "" {
		q = q.Joins("JOIN documents ON documents.id = revisions.document_id")
	}
	if f.Locale != "" {
		q = q.Where("documents.locale = ?", f.Locale)
	}
	if f.Product != "" {
		tagged := s.db.Table("document_products").
			Select("document_products.document_id").
			Joins("JOIN products ON products.id = document_products.product_id").
			Where("products.slug = ?", f.Product)
		q = q.Where("(documents.id IN (?) OR documents.parent_id IN (?))", tagged, tagged)
	}
	return q
}
