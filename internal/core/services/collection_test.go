package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

func TestCollectionService_Create(t *testing.T) {
	f := newRAGFixture(t)

	c, err := f.collectionSvc.Create(context.Background(), 1, driving.CreateCollectionRequest{
		Name:        "  Research  ",
		Description: "papers",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.ID == 0 {
		t.Error("expected ID to be assigned")
	}
	if c.Name != "Research" {
		t.Errorf("Name = %q, want Research", c.Name)
	}
	if c.UserID != 1 {
		t.Errorf("UserID = %d, want 1", c.UserID)
	}
	if !f.index.HasIndex(domain.IndexName(c.ID)) {
		t.Errorf("expected index %s to be created", domain.IndexName(c.ID))
	}
}

func TestCollectionService_Create_EmptyName(t *testing.T) {
	f := newRAGFixture(t)

	_, err := f.collectionSvc.Create(context.Background(), 1, driving.CreateCollectionRequest{Name: " "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Create() error = %v, want ErrInvalidInput", err)
	}
	if f.collections.Count() != 0 {
		t.Error("no collection should be stored")
	}
}

func TestCollectionService_Create_IndexFailureIsSwallowed(t *testing.T) {
	f := newRAGFixture(t)
	f.index.CreateIndexErr = errors.New("quota exceeded")

	c, err := f.collectionSvc.Create(context.Background(), 1, driving.CreateCollectionRequest{Name: "docs"})
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
	if f.collections.Count() != 1 {
		t.Errorf("collection count = %d, want 1", f.collections.Count())
	}
	if f.index.HasIndex(domain.IndexName(c.ID)) {
		t.Error("index should not exist")
	}
}

func TestCollectionService_Create_NoVectorIndex(t *testing.T) {
	f := newRAGFixture(t)
	f.services.SetVectorIndex(nil)

	if _, err := f.collectionSvc.Create(context.Background(), 1, driving.CreateCollectionRequest{Name: "docs"}); err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
}

func TestCollectionService_Get(t *testing.T) {
	f := newRAGFixture(t)
	c := f.createCollection(t, 1, "docs")

	tests := []struct {
		name    string
		userID  int64
		id      int64
		wantErr error
	}{
		{"owner", 1, c.ID, nil},
		{"other user", 2, c.ID, domain.ErrForbidden},
		{"missing", 1, 999, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.collectionSvc.Get(context.Background(), tt.userID, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Get() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.ID != c.ID {
				t.Errorf("Get() ID = %d, want %d", got.ID, c.ID)
			}
		})
	}
}

func TestCollectionService_List_NewestFirst(t *testing.T) {
	f := newRAGFixture(t)
	first := f.createCollection(t, 1, "first")
	second := f.createCollection(t, 1, "second")
	f.createCollection(t, 2, "not mine")

	list, err := f.collectionSvc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() len = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("List() order = [%d %d], want [%d %d]", list[0].ID, list[1].ID, second.ID, first.ID)
	}

	empty, err := f.collectionSvc.List(context.Background(), 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List() = %v, want empty slice", empty)
	}
}

func TestCollectionService_Update(t *testing.T) {
	f := newRAGFixture(t)
	c := f.createCollection(t, 1, "docs")

	name := "renamed"
	desc := "new description"
	updated, err := f.collectionSvc.Update(context.Background(), 1, c.ID, driving.UpdateCollectionRequest{
		Name:        &name,
		Description: &desc,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != name || updated.Description != desc {
		t.Errorf("Update() = %+v", updated)
	}

	// Description only
	desc2 := "only description"
	updated, err = f.collectionSvc.Update(context.Background(), 1, c.ID, driving.UpdateCollectionRequest{Description: &desc2})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != name {
		t.Errorf("Name = %q, want unchanged %q", updated.Name, name)
	}

	blank := ""
	if _, err := f.collectionSvc.Update(context.Background(), 1, c.ID, driving.UpdateCollectionRequest{Name: &blank}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Update() with blank name error = %v, want ErrInvalidInput", err)
	}
	if _, err := f.collectionSvc.Update(context.Background(), 2, c.ID, driving.UpdateCollectionRequest{Name: &name}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Update() by other user error = %v, want ErrForbidden", err)
	}
}

func TestCollectionService_Delete(t *testing.T) {
	f := newRAGFixture(t)
	c := f.createCollection(t, 1, "docs")

	if err := f.collectionSvc.Delete(context.Background(), 2, c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Delete() by other user error = %v, want ErrForbidden", err)
	}
	if err := f.collectionSvc.Delete(context.Background(), 1, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.collections.Count() != 0 {
		t.Error("collection should be deleted")
	}
	if f.index.HasIndex(domain.IndexName(c.ID)) {
		t.Error("index should be deleted")
	}
	if err := f.collectionSvc.Delete(context.Background(), 1, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestCollectionService_Delete_IndexFailureIsSwallowed(t *testing.T) {
	f := newRAGFixture(t)
	c := f.createCollection(t, 1, "docs")
	f.index.DeleteIndexErr = errors.New("provider down")

	if err := f.collectionSvc.Delete(context.Background(), 1, c.ID); err != nil {
		t.Fatalf("Delete() error = %v, want nil", err)
	}
	if f.collections.Count() != 0 {
		t.Error("collection row should be deleted even when the index is not")
	}
}

func TestCollectionService_IndexSpec(t *testing.T) {
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	svc := &collectionService{services: services}

	got := svc.spec()
	if got != domain.DefaultIndexSpec() {
		t.Errorf("spec() = %+v, want %+v", got, domain.DefaultIndexSpec())
	}

	svc.indexSpec = domain.IndexSpec{Dimension: 1536, Metric: domain.MetricDotProduct, Region: "eu-west-1"}
	got = svc.spec()
	if got.Dimension != 1536 || got.Metric != domain.MetricDotProduct || got.Region != "eu-west-1" || got.Cloud != "aws" {
		t.Errorf("spec() = %+v", got)
	}
}
