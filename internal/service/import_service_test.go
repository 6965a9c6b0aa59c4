package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"catalog-cms/internal/catalog"
	"catalog-cms/internal/domain"
	"catalog-cms/internal/events"
	"catalog-cms/internal/ingest"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

var importTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestImportService() (*importService, *mockProductRepository, *mockArticleRepository, *recordingPublisher) {
	products := newMockProductRepository()
	articles := newMockArticleRepository()
	publisher := &recordingPublisher{}
	svc := NewImportService(products, articles, publisher, zap.NewNop()).(*importService)
	svc.now = fixedClock(importTime)
	return svc, products, articles, publisher
}

func TestSyncInsertsNewRecordWithNormalizedRegistry(t *testing.T) {
	svc, products, _, publisher := newTestImportService()

	report, err := svc.Sync(context.Background(), ingest.Batch{
		Products: []map[string]any{{
			"id":              "42",
			"title":           "Пирометр",
			"characteristics": map[string]any{"Госреестр": "внесен в реестр"},
		}},
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if report.Products.Inserted != 1 || len(report.Failed) != 0 {
		t.Fatalf("Expected 1 insert and no failures, got %+v", report)
	}

	stored := products.products["42"]
	if got := stored.Characteristics[catalog.KeyRegistry]; got != catalog.Yes {
		t.Errorf("Expected registry %q, got %v", catalog.Yes, got)
	}
	if !stored.CreatedAt.Equal(importTime) || !stored.UpdatedAt.Equal(importTime) {
		t.Errorf("Expected timestamps %v, got %v / %v", importTime, stored.CreatedAt, stored.UpdatedAt)
	}
	if publisher.count(events.ProductsChanged) != 1 {
		t.Errorf("Expected one products event, got %v", publisher.topics)
	}
	if publisher.count(events.ArticlesChanged) != 0 {
		t.Errorf("Articles were not supplied, yet an event was published")
	}
	if report.RunID == "" {
		t.Error("Expected a run id")
	}
}

func TestSyncKeepsStoredCharacteristics(t *testing.T) {
	svc, products, _, _ := newTestImportService()
	created := importTime.Add(-48 * time.Hour)

	products.Insert(context.Background(), &domain.Product{
		ID:    "7",
		Title: "Старое название",
		Price: 100,
		Characteristics: catalog.Normalize(map[string]any{
			catalog.KeyDesign:    []string{"стационарный"},
			catalog.KeyRegistry:  "нет",
			catalog.KeyMaterials: []string{},
		}),
		CreatedAt: created,
		UpdatedAt: created,
	})

	report, err := svc.Sync(context.Background(), ingest.Batch{
		Products: []map[string]any{{
			"id":    "7",
			"title": "Новое название",
			"characteristics": map[string]any{
				"Исполнение":  "переносной",
				"Госреестр":   "да",
				"Погрешность": 0.01,
				"материалы":   []any{"металл"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if report.Products.Updated != 1 {
		t.Fatalf("Expected 1 update, got %+v", report.Products)
	}

	p := products.products["7"]
	if p.Title != "Новое название" {
		t.Errorf("Scalar field should be overwritten, got %q", p.Title)
	}
	if p.Price != 100 {
		t.Errorf("Absent field should be kept, got price %v", p.Price)
	}
	if !reflect.DeepEqual(p.Characteristics[catalog.KeyDesign], []string{"стационарный"}) {
		t.Errorf("Stored design must win, got %v", p.Characteristics[catalog.KeyDesign])
	}
	if p.Characteristics[catalog.KeyRegistry] != catalog.No {
		t.Errorf("Stored registry must win, got %v", p.Characteristics[catalog.KeyRegistry])
	}
	if p.Characteristics[catalog.KeyAccuracy] != 1.0 {
		t.Errorf("Missing accuracy should be filled and rescaled, got %v", p.Characteristics[catalog.KeyAccuracy])
	}
	if !reflect.DeepEqual(p.Characteristics[catalog.KeyMaterials], []string{"металл"}) {
		t.Errorf("Empty stored list is a gap and should be filled, got %v", p.Characteristics[catalog.KeyMaterials])
	}
	if !p.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt must be preserved, got %v", p.CreatedAt)
	}
	if !p.UpdatedAt.Equal(importTime) {
		t.Errorf("UpdatedAt must be refreshed, got %v", p.UpdatedAt)
	}
}

func TestSyncBatchWithMalformedRecord(t *testing.T) {
	svc, products, _, _ := newTestImportService()

	report, err := svc.Sync(context.Background(), ingest.Batch{
		Products: []map[string]any{
			{"id": "1", "title": "first"},
			nil,
			{"id": "3", "title": "third"},
		},
	})
	if err != nil {
		t.Fatalf("A malformed record must not abort the batch: %v", err)
	}
	if report.Products.Inserted != 2 {
		t.Errorf("Expected 2 inserts, got %+v", report.Products)
	}
	if len(report.Failed) != 1 || report.Failed[0].Index != 1 || report.Failed[0].Entity != EntityProduct {
		t.Errorf("Expected one failure for record 2, got %+v", report.Failed)
	}
	if len(products.products) != 2 {
		t.Errorf("Expected 2 stored products, got %d", len(products.products))
	}
}

func TestSyncSkipsRecordsWithoutID(t *testing.T) {
	svc, _, articles, _ := newTestImportService()

	report, _ := svc.Sync(context.Background(), ingest.Batch{
		Articles: []map[string]any{
			{"title": "no id"},
			{"id": "  ", "title": "blank id"},
			{},
			{"id": 5, "title": "numeric id"},
		},
	})

	if report.Articles.Inserted != 1 {
		t.Errorf("Expected 1 insert, got %+v", report.Articles)
	}
	if len(report.Failed) != 3 {
		t.Errorf("Expected 3 failures, got %+v", report.Failed)
	}
	if _, ok := articles.articles["5"]; !ok {
		t.Error("Numeric id should be stored as its string form")
	}
}

func TestSyncStorageFailureIsPerRecord(t *testing.T) {
	svc, products, _, _ := newTestImportService()
	products.failIDs["2"] = true

	report, err := svc.Sync(context.Background(), ingest.Batch{
		Products: []map[string]any{{"id": "1"}, {"id": "2"}, {"id": "3"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Products.Inserted != 2 || len(report.Failed) != 1 || report.Failed[0].ID != "2" {
		t.Errorf("Unexpected report: %+v", report)
	}
	if report.Failed[0].Reason != errStorage.Error() {
		t.Errorf("Expected storage reason, got %q", report.Failed[0].Reason)
	}
}

func TestSyncRejectsInvalidProducts(t *testing.T) {
	svc, products, _, _ := newTestImportService()
	products.products["2"] = &domain.Product{ID: "2", Title: "stored", Price: 10, CreatedAt: importTime, UpdatedAt: importTime}

	report, err := svc.Sync(context.Background(), ingest.Batch{
		Products: []map[string]any{
			{"id": "1", "title": "negative price", "price": -5},
			{"id": "2", "quantity": -1},
			{"id": "3", "title": "valid", "price": 5},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Products.Inserted != 1 || report.Products.Updated != 0 {
		t.Errorf("Expected only the valid record to be applied, got %+v", report.Products)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("Expected 2 failures, got %+v", report.Failed)
	}
	if report.Failed[0].ID != "1" || report.Failed[0].Reason != "invalid record: price failed gte" {
		t.Errorf("Unexpected first failure: %+v", report.Failed[0])
	}
	if report.Failed[1].ID != "2" || report.Failed[1].Reason != "invalid record: quantity failed gte" {
		t.Errorf("Unexpected second failure: %+v", report.Failed[1])
	}
	if _, ok := products.products["1"]; ok {
		t.Error("Product with a negative price must not be stored")
	}
	if products.products["2"].Quantity != 0 || products.products["2"].Title != "stored" {
		t.Errorf("Stored product must be untouched, got %+v", products.products["2"])
	}
}

func TestSyncSecondRunIsNoOp(t *testing.T) {
	svc, products, _, publisher := newTestImportService()
	batch := ingest.Batch{
		Products: []map[string]any{
			{"id": "1", "sku": []any{"A"}, "price": "1 200", "characteristics": `{"госреестр":"yes","Температура макс":"1200 °C"}`},
			{"id": "2", "photo": "/img/2.jpg", "погрешность": "0,005", "для_малых_объектов": "позволяет"},
		},
		Articles: []map[string]any{
			{"id": "a", "title": "Новости", "content": `[{"type":"p"}]`},
		},
	}

	if _, err := svc.Sync(context.Background(), batch); err != nil {
		t.Fatal(err)
	}
	snapshot := map[string]domain.Product{}
	for id, p := range products.products {
		snapshot[id] = *p
	}

	svc.now = fixedClock(importTime.Add(time.Hour))
	report, err := svc.Sync(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}

	want := EntityReport{Unchanged: 2}
	if report.Products != want {
		t.Errorf("Expected %+v on second run, got %+v", want, report.Products)
	}
	if report.Articles.Unchanged != 1 || report.Articles.Updated != 0 {
		t.Errorf("Expected article unchanged, got %+v", report.Articles)
	}
	if products.replaces != 0 {
		t.Errorf("Second run must not write, got %d replaces", products.replaces)
	}
	for id, before := range snapshot {
		if !products.products[id].UpdatedAt.Equal(before.UpdatedAt) {
			t.Errorf("Product %s was touched on a no-op run", id)
		}
	}
	if publisher.count(events.ProductsChanged) != 1 {
		t.Errorf("Expected events only from the first run, got %v", publisher.topics)
	}
}

func TestSeedOnlyFillsEmptyTables(t *testing.T) {
	svc, products, articles, _ := newTestImportService()
	articles.Insert(context.Background(), &domain.Article{ID: "existing"})

	report, err := svc.Seed(context.Background(), ingest.Batch{
		Products: []map[string]any{{"id": "1"}, {"id": "2"}},
		Articles: []map[string]any{{"id": "new"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Products.Inserted != 2 {
		t.Errorf("Expected products to be seeded, got %+v", report.Products)
	}
	if !report.Articles.Skipped || report.Articles.Inserted != 0 {
		t.Errorf("Expected articles to be skipped, got %+v", report.Articles)
	}
	if _, ok := articles.articles["new"]; ok {
		t.Error("Seed must not touch a non-empty table")
	}
	if len(products.products) != 2 {
		t.Errorf("Expected 2 products, got %d", len(products.products))
	}
}

func TestResetReplacesTableContents(t *testing.T) {
	svc, products, articles, publisher := newTestImportService()
	ctx := context.Background()
	products.Insert(ctx, &domain.Product{ID: "old-1", Title: "edited"})
	products.Insert(ctx, &domain.Product{ID: "old-2"})
	articles.Insert(ctx, &domain.Article{ID: "kept"})

	report, err := svc.Reset(ctx, ingest.Batch{
		Products: []map[string]any{{"id": "old-1", "title": "from file"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Products.Deleted != 2 || report.Products.Inserted != 1 {
		t.Errorf("Unexpected report: %+v", report.Products)
	}
	if products.products["old-1"].Title != "from file" {
		t.Errorf("Reset must drop edits, got %q", products.products["old-1"].Title)
	}
	if _, ok := articles.articles["kept"]; !ok {
		t.Error("Articles were not supplied and must be left alone")
	}
	if publisher.count(events.ProductsChanged) != 1 {
		t.Errorf("Expected one products event, got %v", publisher.topics)
	}
}

func TestImportStopsOnCancelledContext(t *testing.T) {
	svc, products, _, _ := newTestImportService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Sync(ctx, ingest.Batch{Products: []map[string]any{{"id": "1"}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if report == nil {
		t.Fatal("Expected a partial report alongside the error")
	}
	if len(products.products) != 0 {
		t.Error("Nothing should be written after cancellation")
	}
}

// Feature: catalog-import, Property 1: Re-running an import is a no-op
func TestProperty_SyncIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a second sync of the same batch changes nothing", prop.ForAll(
		func(ids []int, registry string, accuracy float64, design string) bool {
			svc, products, _, _ := newTestImportService()

			records := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				records = append(records, map[string]any{
					"id":    fmt.Sprintf("%d", id),
					"title": fmt.Sprintf("Товар %d", id),
					"characteristics": map[string]any{
						"госреестр":   registry,
						"Погрешность": accuracy,
						"исполнение":  design,
					},
				})
			}
			batch := ingest.Batch{Products: records}

			if _, err := svc.Sync(context.Background(), batch); err != nil {
				t.Logf("FAIL: first sync: %v", err)
				return false
			}
			report, err := svc.Sync(context.Background(), batch)
			if err != nil {
				t.Logf("FAIL: second sync: %v", err)
				return false
			}
			if report.Products.Inserted != 0 || report.Products.Updated != 0 {
				t.Logf("FAIL: second sync changed data: %+v", report.Products)
				return false
			}
			if products.replaces != 0 {
				t.Logf("FAIL: second sync wrote %d records", products.replaces)
				return false
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 20)),
		gen.OneConstOf("да", "нет", "внесен", "не внесен", "", "yes"),
		gen.Float64Range(0, 5),
		gen.OneConstOf("", "переносной", "стационарный"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: catalog-import, Property 2: Stored characteristics always win
func TestProperty_StoredCharacteristicsWin(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a non-empty stored characteristic survives any sync", prop.ForAll(
		func(stored string, incoming string) bool {
			svc, products, _, _ := newTestImportService()
			products.Insert(context.Background(), &domain.Product{
				ID:              "1",
				Characteristics: catalog.Normalize(map[string]any{catalog.KeyPrinciple: stored}),
			})

			_, err := svc.Sync(context.Background(), ingest.Batch{Products: []map[string]any{{
				"id":              "1",
				"characteristics": map[string]any{"Принцип действия": incoming},
			}}})
			if err != nil {
				t.Logf("FAIL: sync: %v", err)
				return false
			}

			got := products.products["1"].Characteristics[catalog.KeyPrinciple]
			if got != stored {
				t.Logf("FAIL: expected %q, got %v", stored, got)
				return false
			}
			return true
		},
		gen.RegexMatch(`[a-zа-я]{1,20}`),
		gen.RegexMatch(`[a-zа-я]{0,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
