package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return fmt.Errorf("failed to execute withTx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}

func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name_sr, name_en, slug, parent_id, created_at
		FROM categories
		ORDER BY name_sr
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name.SR, &cat.Name.EN, &cat.Slug, &cat.ParentID, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (c *Conf) InsertCategory(ctx context.Context, nc NewCategory) (Category, error) {
	cat := Category{
		ID:       uuid.NewString(),
		Name:     LocalizedText{SR: nc.NameSR, EN: nc.NameEN},
		Slug:     nc.Slug,
		ParentID: nc.ParentID,
	}
	query := `
		INSERT INTO categories (id, name_sr, name_en, slug, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	err := c.db.QueryRowContext(ctx, query, cat.ID, cat.Name.SR, cat.Name.EN, cat.Slug, cat.ParentID).
		Scan(&cat.CreatedAt)
	if err != nil {
		return Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	return cat, nil
}

func (c *Conf) UpdateCategory(ctx context.Context, id string, nc NewCategory) (Category, error) {
	query := `
		UPDATE categories
		SET name_sr = $1, name_en = $2, slug = $3, parent_id = $4
		WHERE id = $5
		RETURNING created_at
	`
	cat := Category{
		ID:       id,
		Name:     LocalizedText{SR: nc.NameSR, EN: nc.NameEN},
		Slug:     nc.Slug,
		ParentID: nc.ParentID,
	}
	err := c.db.QueryRowContext(ctx, query, cat.Name.SR, cat.Name.EN, cat.Slug, cat.ParentID, id).
		Scan(&cat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("failed to update category: %w", err)
	}
	return cat, nil
}

func (c *Conf) DeleteCategory(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProducts returns a page of products with their variations. A non-empty
// categoryID filters by category or subcategory.
func (c *Conf) ListProducts(ctx context.Context, categoryID string, limit, offset int) ([]Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, name_sr, name_en, description_sr, description_en, image_url,
		       category_id, subcategory_id, price, unit, discount, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR category_id = $1 OR subcategory_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := c.db.QueryContext(ctx, query, categoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	for i := range products {
		variations, err := c.listVariations(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Variations = variations
	}
	return products, nil
}

func (c *Conf) GetProductByID(ctx context.Context, id string) (Product, error) {
	query := `
		SELECT id, name_sr, name_en, description_sr, description_en, image_url,
		       category_id, subcategory_id, price, unit, discount, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	row := c.db.QueryRowContext(ctx, query, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	p.Variations, err = c.listVariations(ctx, p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// GetVariation loads a single variation together with its owning product.
func (c *Conf) GetVariation(ctx context.Context, variationID string) (Product, Variation, error) {
	query := `
		SELECT id, product_id, name_sr, name_en, price, unit, in_stock, image_url, active, discount
		FROM product_variations
		WHERE id = $1
	`
	var v Variation
	err := c.db.QueryRowContext(ctx, query, variationID).Scan(
		&v.ID, &v.ProductID, &v.Name.SR, &v.Name.EN, &v.Price,
		&v.Unit, &v.InStock, &v.ImageURL, &v.Active, &v.Discount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, Variation{}, ErrNotFound
		}
		return Product{}, Variation{}, fmt.Errorf("failed to query variation: %w", err)
	}
	p, err := c.GetProductByID(ctx, v.ProductID)
	if err != nil {
		return Product{}, Variation{}, err
	}
	return p, v, nil
}

func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	price, err := parseOptionalPrice(np.Price)
	if err != nil {
		return Product{}, err
	}
	p := Product{
		ID:            uuid.NewString(),
		Name:          LocalizedText{SR: np.NameSR, EN: np.NameEN},
		Description:   LocalizedText{SR: np.DescriptionSR, EN: np.DescriptionEN},
		ImageURL:      np.ImageURL,
		CategoryID:    np.CategoryID,
		SubcategoryID: np.SubcategoryID,
		Price:         price,
		Unit:          np.Unit,
		Discount:      np.Discount,
	}
	query := `
		INSERT INTO products (id, name_sr, name_en, description_sr, description_en, image_url,
		                      category_id, subcategory_id, price, unit, discount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRowContext(ctx, query,
		p.ID, p.Name.SR, p.Name.EN, p.Description.SR, p.Description.EN, p.ImageURL,
		p.CategoryID, p.SubcategoryID, p.Price, p.Unit, p.Discount,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

func (c *Conf) UpdateProduct(ctx context.Context, id string, np NewProduct) (Product, error) {
	price, err := parseOptionalPrice(np.Price)
	if err != nil {
		return Product{}, err
	}
	p := Product{
		ID:            id,
		Name:          LocalizedText{SR: np.NameSR, EN: np.NameEN},
		Description:   LocalizedText{SR: np.DescriptionSR, EN: np.DescriptionEN},
		ImageURL:      np.ImageURL,
		CategoryID:    np.CategoryID,
		SubcategoryID: np.SubcategoryID,
		Price:         price,
		Unit:          np.Unit,
		Discount:      np.Discount,
	}
	query := `
		UPDATE products
		SET name_sr = $1, name_en = $2, description_sr = $3, description_en = $4,
		    image_url = $5, category_id = $6, subcategory_id = $7,
		    price = $8, unit = $9, discount = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRowContext(ctx, query,
		p.Name.SR, p.Name.EN, p.Description.SR, p.Description.EN,
		p.ImageURL, p.CategoryID, p.SubcategoryID, p.Price, p.Unit, p.Discount, id,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// DeleteProduct removes the product and its variations in one transaction.
func (c *Conf) DeleteProduct(ctx context.Context, id string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_variations WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete variations: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (c *Conf) InsertVariation(ctx context.Context, productID string, nv NewVariation) (Variation, error) {
	price, err := decimal.NewFromString(nv.Price)
	if err != nil {
		return Variation{}, fmt.Errorf("invalid price %q: %w", nv.Price, err)
	}
	v := Variation{
		ID:        uuid.NewString(),
		ProductID: productID,
		Name:      LocalizedText{SR: nv.NameSR, EN: nv.NameEN},
		Price:     price,
		Unit:      nv.Unit,
		InStock:   nv.InStock,
		ImageURL:  nv.ImageURL,
		Active:    nv.Active,
		Discount:  nv.Discount,
	}
	query := `
		INSERT INTO product_variations (id, product_id, name_sr, name_en, price, unit,
		                                in_stock, image_url, active, discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = c.db.ExecContext(ctx, query,
		v.ID, v.ProductID, v.Name.SR, v.Name.EN, v.Price, v.Unit,
		v.InStock, v.ImageURL, v.Active, v.Discount,
	)
	if err != nil {
		return Variation{}, fmt.Errorf("failed to insert variation: %w", err)
	}
	return v, nil
}

func (c *Conf) UpdateVariation(ctx context.Context, variationID string, nv NewVariation) (Variation, error) {
	price, err := decimal.NewFromString(nv.Price)
	if err != nil {
		return Variation{}, fmt.Errorf("invalid price %q: %w", nv.Price, err)
	}
	query := `
		UPDATE product_variations
		SET name_sr = $1, name_en = $2, price = $3, unit = $4,
		    in_stock = $5, image_url = $6, active = $7, discount = $8
		WHERE id = $9
		RETURNING product_id
	`
	v := Variation{
		ID:       variationID,
		Name:     LocalizedText{SR: nv.NameSR, EN: nv.NameEN},
		Price:    price,
		Unit:     nv.Unit,
		InStock:  nv.InStock,
		ImageURL: nv.ImageURL,
		Active:   nv.Active,
		Discount: nv.Discount,
	}
	err = c.db.QueryRowContext(ctx, query,
		v.Name.SR, v.Name.EN, v.Price, v.Unit, v.InStock, v.ImageURL, v.Active, v.Discount, variationID,
	).Scan(&v.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Variation{}, ErrNotFound
		}
		return Variation{}, fmt.Errorf("failed to update variation: %w", err)
	}
	return v, nil
}

func (c *Conf) DeleteVariation(ctx context.Context, variationID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM product_variations WHERE id = $1`, variationID)
	if err != nil {
		return fmt.Errorf("failed to delete variation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Conf) listVariations(ctx context.Context, productID string) ([]Variation, error) {
	query := `
		SELECT id, product_id, name_sr, name_en, price, unit, in_stock, image_url, active, discount
		FROM product_variations
		WHERE product_id = $1
		ORDER BY price
	`
	rows, err := c.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variations: %w", err)
	}
	defer rows.Close()

	var variations []Variation
	for rows.Next() {
		var v Variation
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name.SR, &v.Name.EN, &v.Price,
			&v.Unit, &v.InStock, &v.ImageURL, &v.Active, &v.Discount); err != nil {
			return nil, fmt.Errorf("failed to scan variation: %w", err)
		}
		variations = append(variations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variations: %w", err)
	}
	return variations, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var p Product
	var price sql.NullString
	err := row.Scan(&p.ID, &p.Name.SR, &p.Name.EN, &p.Description.SR, &p.Description.EN,
		&p.ImageURL, &p.CategoryID, &p.SubcategoryID, &price, &p.Unit, &p.Discount,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("failed to scan product: %w", err)
	}
	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return Product{}, fmt.Errorf("invalid price in row %s: %w", p.ID, err)
		}
		p.Price = &d
	}
	return p, nil
}

func parseOptionalPrice(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", *s, err)
	}
	return &d, nil
}
