package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rankpilot/rankd/internal/core/domain"
)

func TestCatalogRepositoryListModelsDecodesJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewCatalogRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "provider", "languages", "supports_json", "vision", "price_per_1k", "regions", "active", "updated_at"}).
		AddRow("ds-chat", "deepseek-chat", "deepseek", `["zh","en"]`, true, false, 0.002, `["cn"]`, true, time.Now())

	mock.ExpectQuery("FROM models").WillReturnRows(rows)

	models, err := repo.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	if len(models[0].Languages) != 2 || models[0].Languages[0] != "zh" {
		t.Fatalf("languages = %v", models[0].Languages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCatalogRepositoryListPersonasSubjectQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewCatalogRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "summary", "product_id", "product_name", "category", "subcategory", "region", "active", "updated_at"}).
		AddRow("p-1", "职场新人", "", "prod-1", "", "美妆", "", "cn", true, time.Now())

	mock.ExpectQuery("FROM personas").
		WithArgs("prod-1", "美妆").
		WillReturnRows(rows)

	personas, err := repo.ListPersonas(context.Background(), domain.SubjectQuery{ProductID: "prod-1", Category: "美妆"})
	if err != nil {
		t.Fatalf("ListPersonas() error = %v", err)
	}
	if len(personas) != 1 || personas[0].ID != "p-1" {
		t.Fatalf("personas = %+v", personas)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCatalogRepositoryListScriptsEmptyQueryIsUnfiltered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewCatalogRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "summary", "product_id", "product_name", "category", "subcategory", "channel", "duration_sec", "active", "updated_at"}).
		AddRow("s-1", "开箱脚本", "", "", "", "3C", "", "tiktok", 30, true, time.Now())

	// No subject keys: no args, the row cap alone bounds the scan.
	mock.ExpectQuery("LIMIT 100").WillReturnRows(rows)

	scripts, err := repo.ListScripts(context.Background(), domain.SubjectQuery{})
	if err != nil {
		t.Fatalf("ListScripts() error = %v", err)
	}
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCatalogRepositoryGetProductNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewCatalogRepository(db)
	mock.ExpectQuery("FROM products").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "subcategory", "region"}))

	if _, err := repo.GetProduct(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
