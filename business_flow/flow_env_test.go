package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	testingutil "github.com/amirphl/parts-pricing/testing"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/stretchr/testify/require"
)

// flowEnv wires real repositories over a throwaway database.
type flowEnv struct {
	ctx      context.Context
	db       *testingutil.TestDB
	fx       *testingutil.TestFixtures
	parts    repository.PartRepository
	formulas repository.FormulaRepository
	devices  repository.DeviceModelRepository
	users    repository.UserRepository
	catalog  DeviceCatalog
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()

	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	devices := repository.NewDeviceModelRepository(tdb.DB)
	return &flowEnv{
		ctx:      testingutil.CreateTestContext(),
		db:       tdb,
		fx:       testingutil.NewTestFixtures(tdb),
		parts:    repository.NewPartRepository(tdb.DB),
		formulas: repository.NewFormulaRepository(tdb.DB),
		devices:  devices,
		users:    repository.NewUserRepository(tdb.DB),
		catalog:  NewDeviceCatalog(devices, nil, nil),
	}
}

// seedGalaxyCatalog inserts two phones in catalog order.
func (e *flowEnv) seedGalaxyCatalog(t *testing.T) {
	t.Helper()
	_, err := e.fx.CreateTestDeviceModel("Galaxy S23", "SM-S911", models.CategoryHighEnd)
	require.NoError(t, err)
	_, err = e.fx.CreateTestDeviceModel("Galaxy A15", "SM-A155", models.CategoryLowEnd)
	require.NoError(t, err)
}

func (e *flowEnv) part(t *testing.T, code, desc string, price float64) *models.Part {
	t.Helper()
	p := models.Part{Code: code, MapPrice: utils.ToPtr(price), StockQty: utils.ToPtr(2)}
	if desc != "" {
		p.Description = utils.ToPtr(desc)
	}
	matcher, err := e.catalog.Matcher(e.ctx)
	require.NoError(t, err)
	matcher.Annotate(&p)

	created, err := e.fx.CreateTestPart(p)
	require.NoError(t, err)
	return created
}
