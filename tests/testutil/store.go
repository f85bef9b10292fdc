package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/org"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
)

// NewTestStore creates a file-backed SQLiteStore in a temporary directory
// with all migrations applied. A file is used instead of ":memory:" so
// concurrent tests exercise real connection pooling. It automatically
// closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "taskcast.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Org user IDs created by SeedOrg.
const (
	SuperAdmin  = "u-admin"
	NorthMgr    = "u-north-mgr"
	SouthMgr    = "u-south-mgr"
	HaifaCoord  = "u-haifa-coord"
	AkkoCoord   = "u-akko-coord"
	EilatCoord  = "u-eilat-coord"
	HaifaAct1   = "u-haifa-act1"
	HaifaAct2   = "u-haifa-act2"
	HaifaAct3   = "u-haifa-act3"
	AkkoAct     = "u-akko-act"
	EilatAct    = "u-eilat-act"
	InactiveAct = "u-haifa-inactive"
)

// Seed returns a two-area organization:
//
//	north: haifa (coord, 3 activists, 1 inactive activist), akko (coord, 1 activist)
//	south: eilat (coord, 1 activist)
func Seed() *org.Seed {
	no := false
	return &org.Seed{
		Areas: []model.Area{
			{ID: "north", Name: "North"},
			{ID: "south", Name: "South"},
		},
		Cities: []model.City{
			{ID: "haifa", AreaID: "north", Name: "Haifa"},
			{ID: "akko", AreaID: "north", Name: "Akko"},
			{ID: "eilat", AreaID: "south", Name: "Eilat"},
		},
		Users: []org.SeedUser{
			{ID: SuperAdmin, FullName: "Ada Admin", Email: "ada@example.org", Role: model.RoleSuperAdmin},
			{ID: NorthMgr, FullName: "Noa North", Role: model.RoleAreaManager, AreaID: "north"},
			{ID: SouthMgr, FullName: "Sam South", Role: model.RoleAreaManager, AreaID: "south"},
			{ID: HaifaCoord, FullName: "Hila Haifa", Role: model.RoleCityCoordinator, CityID: "haifa"},
			{ID: AkkoCoord, FullName: "Avi Akko", Role: model.RoleCityCoordinator, CityID: "akko"},
			{ID: EilatCoord, FullName: "Eli Eilat", Role: model.RoleCityCoordinator, CityID: "eilat"},
			{ID: HaifaAct1, FullName: "Dana Activist", Role: model.RoleActivistCoordinator, CityID: "haifa"},
			{ID: HaifaAct2, FullName: "Omer Activist", Role: model.RoleActivistCoordinator, CityID: "haifa"},
			{ID: HaifaAct3, FullName: "Tal Activist", Role: model.RoleActivistCoordinator, CityID: "haifa"},
			{ID: AkkoAct, FullName: "Rina Activist", Role: model.RoleActivistCoordinator, CityID: "akko"},
			{ID: EilatAct, FullName: "Yoni Activist", Role: model.RoleActivistCoordinator, CityID: "eilat"},
			{ID: InactiveAct, FullName: "Gil Gone", Role: model.RoleActivistCoordinator, CityID: "haifa", Active: &no},
		},
	}
}

// NewSeededStore returns a test store whose directory tables hold Seed.
func NewSeededStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s := NewTestStore(t)
	if err := org.Import(context.Background(), s.DB(), Seed()); err != nil {
		t.Fatalf("seeding org: %v", err)
	}
	return s
}
