package service

import (
	"context"
	"sync"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/models"
)

type fakeTx struct{ calls int }

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type auditEntry struct {
	Module      access.Module
	Descripcion string
	URL         string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

func (f *fakeAudit) Record(ctx context.Context, actor *models.CurrentUser, module access.Module, descripcion, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, auditEntry{Module: module, Descripcion: descripcion, URL: url})
	return nil
}

func (f *fakeAudit) descriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Descripcion)
	}
	return out
}

type fakeCascade struct{ parents []int64 }

func (f *fakeCascade) SoftDeleteByParent(ctx context.Context, parentID int64) error {
	f.parents = append(f.parents, parentID)
	return nil
}

func testActor() *models.CurrentUser {
	return &models.CurrentUser{ID: 7, Email: "admin@pjecz.gob.mx", Nombre: "ADMIN", AutoridadID: 1}
}
