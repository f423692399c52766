package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// subjectRowCap bounds broad-recall subject queries so a keyless request
// degrades to a bounded scan instead of a full-table read.
const subjectRowCap = 100

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListModels(ctx context.Context) ([]domain.ModelCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, provider, languages, supports_json, vision, price_per_1k, regions, active, updated_at
FROM models
ORDER BY updated_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ModelCandidate, 0)
	for rows.Next() {
		var m domain.ModelCandidate
		var languagesRaw, regionsRaw []byte
		err := rows.Scan(
			&m.ID, &m.Name, &m.Provider, &languagesRaw, &m.SupportsJSON,
			&m.Vision, &m.PricePer1K, &regionsRaw, &m.Active, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		if err := json.Unmarshal(languagesRaw, &m.Languages); err != nil {
			return nil, fmt.Errorf("unmarshal model languages: %w", err)
		}
		if err := json.Unmarshal(regionsRaw, &m.Regions); err != nil {
			return nil, fmt.Errorf("unmarshal model regions: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) ListPromptTemplates(ctx context.Context, businessModule string) ([]domain.PromptTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, business_module, variables, is_default, is_active, updated_at
FROM prompt_templates
WHERE business_module = $1
ORDER BY updated_at DESC
`, businessModule)
	if err != nil {
		return nil, fmt.Errorf("list prompt templates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PromptTemplate, 0)
	for rows.Next() {
		var p domain.PromptTemplate
		var variablesRaw []byte
		err := rows.Scan(&p.ID, &p.Name, &p.BusinessModule, &variablesRaw, &p.IsDefault, &p.IsActive, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan prompt template: %w", err)
		}
		if err := json.Unmarshal(variablesRaw, &p.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal template variables: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt templates: %w", err)
	}
	return out, nil
}

// subjectClause builds the broad-recall OR filter: any present subject key may
// match. With no keys the query stays unfiltered and only the row cap bounds it.
func subjectClause(q domain.SubjectQuery) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("product_id", q.ProductID)
	add("product_name", q.ProductName)
	add("category", q.Category)
	add("subcategory", q.Subcategory)
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " OR ") + "\n", args
}

func (r *CatalogRepository) ListPersonas(ctx context.Context, q domain.SubjectQuery) ([]domain.Persona, error) {
	where, args := subjectClause(q)
	query := `
SELECT id, name, summary, product_id, product_name, category, subcategory, region, active, updated_at
FROM personas
` + where + fmt.Sprintf("ORDER BY updated_at DESC\nLIMIT %d", subjectRowCap)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Persona, 0)
	for rows.Next() {
		var p domain.Persona
		err := rows.Scan(
			&p.ID, &p.Name, &p.Summary, &p.ProductID, &p.ProductName,
			&p.Category, &p.Subcategory, &p.Region, &p.Active, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personas: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) ListScripts(ctx context.Context, q domain.SubjectQuery) ([]domain.Script, error) {
	where, args := subjectClause(q)
	query := `
SELECT id, name, summary, product_id, product_name, category, subcategory, channel, duration_sec, active, updated_at
FROM scripts
` + where + fmt.Sprintf("ORDER BY updated_at DESC\nLIMIT %d", subjectRowCap)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Script, 0)
	for rows.Next() {
		var s domain.Script
		err := rows.Scan(
			&s.ID, &s.Name, &s.Summary, &s.ProductID, &s.ProductName,
			&s.Category, &s.Subcategory, &s.Channel, &s.DurationSec, &s.Active, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) ListStyles(ctx context.Context, category, channel string) ([]domain.Style, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if category != "" {
		args = append(args, category)
		clauses = append(clauses, fmt.Sprintf("(category = $%d OR category IS NULL OR category = '')", len(args)))
	}
	if channel != "" {
		args = append(args, channel)
		clauses = append(clauses, fmt.Sprintf("(channel = $%d OR channel IS NULL OR channel = '')", len(args)))
	}
	query := `
SELECT id, name, category, channel, is_default, active, updated_at
FROM styles
`
	if len(clauses) > 0 {
		query += "WHERE " + strings.Join(clauses, " AND ") + "\n"
	}
	query += fmt.Sprintf("ORDER BY updated_at DESC\nLIMIT %d", subjectRowCap)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list styles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Style, 0)
	for rows.Next() {
		var s domain.Style
		err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.Channel, &s.IsDefault, &s.Active, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan style: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate styles: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, category, subcategory, region
FROM products
WHERE id = $1
`, id)

	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Subcategory, &p.Region)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product not found: id=%s", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}
