package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/util"
)

const categorySelect = `SELECT id, name, slug, description, order_index, active, created_at, updated_at FROM categories`

const subcategorySelect = `SELECT id, category_id, name, slug, description, order_index, active, created_at, updated_at FROM subcategories`

// CategoryParams holds the columns written on category create and update.
type CategoryParams struct {
	Name        string
	Slug        string
	Description *string
	OrderIndex  int
	Active      bool
}

// ListCategories returns categories ordered for navigation, each with its
// subcategories. With activeOnly set, inactive categories and
// subcategories are omitted.
func (q *Queries) ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	catQuery := categorySelect
	subQuery := subcategorySelect
	if activeOnly {
		catQuery += " WHERE active = $1"
		subQuery += " WHERE active = $1"
	}
	catQuery += " ORDER BY order_index, name"
	subQuery += " ORDER BY category_id, order_index, name"

	var args []any
	if activeOnly {
		args = []any{true}
	}

	var categories []model.Category
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		categories, err = queryCategories(ctx, db, catQuery, args...)
		if err != nil {
			return err
		}
		subs, err := querySubcategories(ctx, db, subQuery, args...)
		if err != nil {
			return err
		}
		attachSubcategories(categories, subs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns the category with id and its subcategories.
func (q *Queries) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	return q.getCategory(ctx, "id = $1", id)
}

// GetCategoryBySlug returns the category with slug and its subcategories.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return q.getCategory(ctx, "slug = $1", strings.ToLower(slug))
}

// GetCategoryByName matches name case-insensitively.
func (q *Queries) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return q.getCategory(ctx, "LOWER(name) = $1", strings.ToLower(strings.TrimSpace(name)))
}

// getCategory returns ErrNotFound when cond matches nothing.
func (q *Queries) getCategory(ctx context.Context, cond string, arg any) (*model.Category, error) {
	var found *model.Category
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		list, err := queryCategories(ctx, db, categorySelect+" WHERE "+cond, arg)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return ErrNotFound
		}
		subs, err := querySubcategories(ctx, db,
			subcategorySelect+" WHERE category_id = $1 ORDER BY order_index, name", list[0].ID)
		if err != nil {
			return err
		}
		attachSubcategories(list, subs)
		found = &list[0]
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return found, nil
}

// CreateCategory inserts a category.
func (q *Queries) CreateCategory(ctx context.Context, p CategoryParams) (model.Category, error) {
	now := q.timestamp()
	c := model.Category{
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		OrderIndex:    p.OrderIndex,
		Active:        p.Active,
		Subcategories: []model.Subcategory{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `INSERT INTO categories (name, slug, description, order_index, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			p.Name, p.Slug, util.NullStringFromPtr(p.Description), p.OrderIndex, p.Active, now, now,
		).Scan(&c.ID)
	})
	if err != nil {
		return model.Category{}, fmt.Errorf("creating category: %w", mapError(err))
	}
	return c, nil
}

// UpdateCategory replaces the columns of the category with id. Articles
// filed under the old name follow a rename.
func (q *Queries) UpdateCategory(ctx context.Context, id int64, p CategoryParams) (*model.Category, error) {
	now := q.timestamp()
	err := q.m.ExecuteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var oldName string
		err := tx.QueryRowContext(ctx, "SELECT name FROM categories WHERE id = $1", id).Scan(&oldName)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE categories
SET name = $1, slug = $2, description = $3, order_index = $4, active = $5, updated_at = $6
WHERE id = $7`,
			p.Name, p.Slug, util.NullStringFromPtr(p.Description), p.OrderIndex, p.Active, now, id)
		if err != nil {
			return err
		}

		if oldName != p.Name {
			_, err = tx.ExecContext(ctx,
				"UPDATE articles SET category = $1 WHERE category_id = $2 OR category = $3",
				p.Name, id, oldName)
		}
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", mapError(err))
	}
	return q.GetCategory(ctx, id)
}

// DeleteCategory removes the category with id and its subcategories.
// Articles keep their category name but lose the link.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	return q.deleteByID(ctx, "categories", id)
}

// GetSubcategory returns the subcategory with id.
func (q *Queries) GetSubcategory(ctx context.Context, id int64) (*model.Subcategory, error) {
	var found *model.Subcategory
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		list, err := querySubcategories(ctx, db, subcategorySelect+" WHERE id = $1", id)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return ErrNotFound
		}
		found = &list[0]
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting subcategory: %w", err)
	}
	return found, nil
}

// ListSubcategories returns the subcategories of categoryID.
func (q *Queries) ListSubcategories(ctx context.Context, categoryID int64) ([]model.Subcategory, error) {
	var subs []model.Subcategory
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		subs, err = querySubcategories(ctx, db,
			subcategorySelect+" WHERE category_id = $1 ORDER BY order_index, name", categoryID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing subcategories: %w", err)
	}
	return subs, nil
}

// CreateSubcategory inserts a subcategory under categoryID.
func (q *Queries) CreateSubcategory(ctx context.Context, categoryID int64, p CategoryParams) (model.Subcategory, error) {
	now := q.timestamp()
	s := model.Subcategory{
		CategoryID:  categoryID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		OrderIndex:  p.OrderIndex,
		Active:      p.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `INSERT INTO subcategories (category_id, name, slug, description, order_index, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			categoryID, p.Name, p.Slug, util.NullStringFromPtr(p.Description), p.OrderIndex, p.Active, now, now,
		).Scan(&s.ID)
	})
	if err != nil {
		return model.Subcategory{}, fmt.Errorf("creating subcategory: %w", mapError(err))
	}
	return s, nil
}

// UpdateSubcategory replaces the columns of the subcategory with id.
func (q *Queries) UpdateSubcategory(ctx context.Context, id int64, p CategoryParams) (*model.Subcategory, error) {
	now := q.timestamp()
	var n int64
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE subcategories
SET name = $1, slug = $2, description = $3, order_index = $4, active = $5, updated_at = $6
WHERE id = $7`,
			p.Name, p.Slug, util.NullStringFromPtr(p.Description), p.OrderIndex, p.Active, now, id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("updating subcategory: %w", mapError(err))
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return q.GetSubcategory(ctx, id)
}

// DeleteSubcategory removes the subcategory with id.
func (q *Queries) DeleteSubcategory(ctx context.Context, id int64) (bool, error) {
	return q.deleteByID(ctx, "subcategories", id)
}

func (q *Queries) deleteByID(ctx context.Context, table string, id int64) (bool, error) {
	var removed bool
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("deleting from %s: %w", table, err)
	}
	return removed, nil
}

func queryCategories(ctx context.Context, db queryer, query string, args ...any) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	list := []model.Category{}
	for rows.Next() {
		var (
			c    model.Category
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &desc, &c.OrderIndex, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Description = util.StringPtr(desc)
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		c.Subcategories = []model.Subcategory{}
		list = append(list, c)
	}
	return list, rows.Err()
}

func querySubcategories(ctx context.Context, db queryer, query string, args ...any) ([]model.Subcategory, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	list := []model.Subcategory{}
	for rows.Next() {
		var (
			s    model.Subcategory
			desc sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &desc, &s.OrderIndex, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Description = util.StringPtr(desc)
		s.CreatedAt = s.CreatedAt.UTC()
		s.UpdatedAt = s.UpdatedAt.UTC()
		list = append(list, s)
	}
	return list, rows.Err()
}

func attachSubcategories(categories []model.Category, subs []model.Subcategory) {
	index := make(map[int64]int, len(categories))
	for i := range categories {
		index[categories[i].ID] = i
	}
	for _, s := range subs {
		if i, ok := index[s.CategoryID]; ok {
			categories[i].Subcategories = append(categories[i].Subcategories, s)
		}
	}
}
